package routes

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const FLASH_COOKIE_NAME = "partner_flash"

const (
	flashSuccess = "success"
	flashError   = "error"
)

// Banner is a dismissible message. Cue names the sound the page plays.
type Banner struct {
	Kind    string
	Message string
	Cue     string
}

func successBanner(msg string) Banner {
	return Banner{Kind: flashSuccess, Message: msg, Cue: "success"}
}

func errorBanner(msg string) Banner {
	return Banner{Kind: flashError, Message: msg, Cue: "error"}
}

// addFlash keeps a banner for the page shown after the next redirect.
func addFlash(c *gin.Context, kind, msg string) {
	s := sessions.Default(c)
	s.AddFlash(msg, kind)
	if err := s.Save(); err != nil {
		slog.Warn("Failed to save flash message", "error", err)
	}
}

func takeFlashes(c *gin.Context) []Banner {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return nil
	}
	s := sessions.Default(c)
	var out []Banner
	for _, kind := range []string{flashSuccess, flashError} {
		for _, f := range s.Flashes(kind) {
			msg, ok := f.(string)
			if !ok {
				continue
			}
			if kind == flashSuccess {
				out = append(out, successBanner(msg))
			} else {
				out = append(out, errorBanner(msg))
			}
		}
	}
	if len(out) > 0 {
		if err := s.Save(); err != nil {
			slog.Warn("Failed to clear flash messages", "error", err)
		}
	}
	return out
}
