package routes

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func TestScriptTag_External_NoIntegrity(t *testing.T) {
	a := newAssetSRI(fstest.MapFS{})
	out := a.ScriptTag("/", "https://cdn.example.com/lib.js")
	assert.NotContains(t, string(out), "integrity=")
	assert.Contains(t, string(out), `src="https://cdn.example.com/lib.js"`)
}

func TestScriptTag_Local_ComputesIntegrity(t *testing.T) {
	content := []byte("console.log('sri-test');\n")
	a := newAssetSRI(fstest.MapFS{
		"assets/js/test-sri.js": {Data: content},
	})

	sum := sha512.Sum384(content)
	expected := "sha384-" + base64.StdEncoding.EncodeToString(sum[:])

	out := a.ScriptTag("/partner/", "assets/js/test-sri.js")
	want := fmt.Sprintf(`<script src="/partner/assets/js/test-sri.js" integrity="%s" crossorigin="anonymous"></script>`, expected)
	assert.Equal(t, want, string(out))
}

func TestScriptTag_MissingAsset(t *testing.T) {
	a := newAssetSRI(fstest.MapFS{})
	out := a.ScriptTag("/", "assets/js/missing.js")
	assert.Equal(t, `<script src="/assets/js/missing.js"></script>`, string(out))
}

func TestScriptTag_EscapesAttributes(t *testing.T) {
	a := newAssetSRI(fstest.MapFS{})
	out := a.ScriptTag("/", `https://x/" onerror="alert(1)`)
	assert.NotContains(t, string(out), `onerror="`)
}
