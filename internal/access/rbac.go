package access

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

type Permission struct {
	Resource string   `yaml:"resource"`
	Actions  []string `yaml:"actions"`
}

type Role struct {
	Description string       `yaml:"description"`
	Permissions []Permission `yaml:"permissions"`
}

type RBACPolicy struct {
	DefaultRole string              `yaml:"default_role"`
	Roles       map[string]Role     `yaml:"roles"`
	Inheritance map[string][]string `yaml:"inheritance"`
}

type RBAC struct {
	mu          sync.RWMutex
	policy      *RBACPolicy
	policyCache map[string]map[string]bool // role -> "resource:action" -> allowed
}

func New() *RBAC {
	return &RBAC{policyCache: make(map[string]map[string]bool)}
}

// NewDefault returns an RBAC loaded with the built-in policy.
func NewDefault() (*RBAC, error) {
	r := New()
	if err := r.Parse(defaultPolicy); err != nil {
		return nil, err
	}
	return r, nil
}

// Load reads the policy from path, or the built-in one when path is empty.
func Load(path string) (*RBAC, error) {
	if path == "" {
		return NewDefault()
	}
	r := New()
	if err := r.LoadPolicy(path); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadPolicy loads RBAC policy from YAML file
func (r *RBAC) LoadPolicy(filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}
	return r.Parse(data)
}

func (r *RBAC) Parse(data []byte) error {
	var policy RBACPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}

	r.mu.Lock()
	r.policy = &policy
	r.policyCache = make(map[string]map[string]bool) // Clear cache
	r.mu.Unlock()

	slog.Info("RBAC policy loaded", "roles", len(policy.Roles))
	return nil
}

// Roles returns role and every role it inherits from.
func (r *RBAC) Roles(role string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.expand(role)
}

// expand must be called with r.mu held.
func (r *RBAC) expand(role string) []string {
	if role == "" && r.policy != nil {
		role = r.policy.DefaultRole
	}
	if role == "" {
		return []string{}
	}

	all := map[string]bool{role: true}
	r.addInheritedRoles(role, all)

	result := make([]string, 0, len(all))
	for name := range all {
		result = append(result, name)
	}
	return result
}

// addInheritedRoles recursively adds inherited roles
func (r *RBAC) addInheritedRoles(role string, roles map[string]bool) {
	if r.policy == nil || r.policy.Inheritance == nil {
		return
	}

	for _, inheritedRole := range r.policy.Inheritance[role] {
		if !roles[inheritedRole] {
			roles[inheritedRole] = true
			r.addInheritedRoles(inheritedRole, roles)
		}
	}
}

// Can checks if role may perform action on resource.
func (r *RBAC) Can(role, resource, action string) bool {
	cacheKey := resource + ":" + action

	r.mu.RLock()
	if r.policy == nil {
		r.mu.RUnlock()
		slog.Warn("RBAC policy not loaded")
		return false
	}
	if allowed, found := r.policyCache[role][cacheKey]; found {
		r.mu.RUnlock()
		return allowed
	}
	allowed := r.evaluate(role, resource, action)
	r.mu.RUnlock()

	r.mu.Lock()
	if r.policyCache[role] == nil {
		r.policyCache[role] = make(map[string]bool)
	}
	r.policyCache[role][cacheKey] = allowed
	r.mu.Unlock()

	return allowed
}

// evaluate must be called with r.mu held.
func (r *RBAC) evaluate(role, resource, action string) bool {
	for _, roleName := range r.expand(role) {
		def, exists := r.policy.Roles[roleName]
		if !exists {
			continue
		}
		for _, perm := range def.Permissions {
			if perm.Resource != "*" && perm.Resource != resource {
				continue
			}
			for _, act := range perm.Actions {
				if act == "*" || act == action {
					return true
				}
			}
		}
	}
	return false
}
