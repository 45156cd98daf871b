package http

import (
	"fmt"
	"net/http"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/allisson/authkeys/internal/authkey/domain"
	apperrors "github.com/allisson/authkeys/internal/errors"
)

// DefaultProtectedMethods are the state-changing methods a policy guards unless told otherwise.
var DefaultProtectedMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// Policy declares how one protected operation is guarded.
type Policy struct {
	Operation       string
	Action          string
	Level           domain.Level
	SuperuserBypass bool
	Methods         []string
	Return403       bool
}

// Protects reports whether requests with the given method must present a key.
// An empty method list protects DefaultProtectedMethods.
func (p Policy) Protects(method string) bool {
	methods := p.Methods
	if len(methods) == 0 {
		methods = DefaultProtectedMethods
	}
	return slices.ContainsFunc(methods, func(m string) bool {
		return strings.EqualFold(m, method)
	})
}

// PolicyTable is the central registry of guarded operations keyed by operation name.
type PolicyTable struct {
	policies map[string]Policy
}

// NewPolicyTable builds a table from the given policies. Later entries replace earlier ones.
func NewPolicyTable(policies ...Policy) *PolicyTable {
	table := &PolicyTable{policies: make(map[string]Policy, len(policies))}
	for _, policy := range policies {
		table.policies[policy.Operation] = policy
	}
	return table
}

// Lookup returns the policy registered for an operation.
func (t *PolicyTable) Lookup(operation string) (Policy, error) {
	policy, ok := t.policies[operation]
	if !ok {
		return Policy{}, domain.ErrPolicyNotFound
	}
	return policy, nil
}

// Operations returns the registered operation names in lexical order.
func (t *PolicyTable) Operations() []string {
	operations := make([]string, 0, len(t.policies))
	for operation := range t.policies {
		operations = append(operations, operation)
	}
	sort.Strings(operations)
	return operations
}

func postOnly(operation, action string, level domain.Level) Policy {
	return Policy{
		Operation:       operation,
		Action:          action,
		Level:           level,
		SuperuserBypass: true,
		Methods:         []string{http.MethodPost},
	}
}

// DefaultPolicyTable returns the built-in policy table.
func DefaultPolicyTable() *PolicyTable {
	return NewPolicyTable(
		postOnly("team_send_invite", "team.invite", domain.LevelMedium),
		postOnly("project_create", "project.create", domain.LevelHigh),
		postOnly("project_update", "project.update", domain.LevelHigh),
		postOnly("mission_create", "mission.create", domain.LevelHigh),
		postOnly("mission_update", "mission.update", domain.LevelHigh),
		postOnly("mission_invite", "mission.invite", domain.LevelLow),
		postOnly("invite_cancel", "invite.cancel", domain.LevelLow),
		postOnly("event_create", "event.create", domain.LevelHigh),
		postOnly("event_update", "event.update", domain.LevelMedium),
		Policy{
			Operation:       "team_invite_one",
			Action:          "team.invite.one",
			Level:           domain.LevelMedium,
			SuperuserBypass: true,
			Methods:         []string{http.MethodPost},
			Return403:       true,
		},
		postOnly("team_create", "team.create", domain.LevelHigh),
		postOnly("team_update", "team.update", domain.LevelHigh),
		postOnly("partner_create", "partner.create", domain.LevelHigh),
		postOnly("partner_update", "partner.update", domain.LevelMedium),
		postOnly("team_invite_bulk", "team.invite.bulk", domain.LevelMedium),
		postOnly("team_invite_revoke", "team.invite.revoke", domain.LevelMedium),
		postOnly("team_invite_resend", "team.invite.resend", domain.LevelMedium),
		postOnly("team_member_toggle", "team.member.toggle", domain.LevelMedium),
		postOnly("team_approve_access", "team.approve_access", domain.LevelHigh),
		postOnly("application_approve", "application_approve", domain.LevelMedium),
		postOnly("application_unapprove", "application_unapprove", domain.LevelCritical),
	)
}

// policyFile is the YAML layout of a policy override file:
//
//	policies:
//	  project_create:
//	    action: project.create
//	    level: critical
//	    methods: [POST, PUT]
type policyFile struct {
	Policies map[string]policyEntry `yaml:"policies"`
}

type policyEntry struct {
	Action          string   `yaml:"action"`
	Level           string   `yaml:"level"`
	SuperuserBypass *bool    `yaml:"superuser_bypass"`
	Methods         []string `yaml:"methods"`
	Return403       bool     `yaml:"return_403"`
}

// ParsePolicies decodes YAML overrides and merges them over base. Entries naming an existing
// operation replace it; unknown operations are added.
func ParsePolicies(base *PolicyTable, data []byte) (*PolicyTable, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("invalid policy file: %v", err))
	}

	policies := make([]Policy, 0, len(base.policies)+len(file.Policies))
	for _, operation := range base.Operations() {
		policies = append(policies, base.policies[operation])
	}

	for operation, entry := range file.Policies {
		policy, err := entry.toPolicy(operation)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}

	return NewPolicyTable(policies...), nil
}

// LoadPolicyTable returns the default table, overridden by the YAML file at path when set.
func LoadPolicyTable(path string) (*PolicyTable, error) {
	table := DefaultPolicyTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read policy file")
	}
	return ParsePolicies(table, data)
}

func (e policyEntry) toPolicy(operation string) (Policy, error) {
	if strings.TrimSpace(e.Action) == "" {
		return Policy{}, apperrors.Wrap(domain.ErrInvalidAction, fmt.Sprintf("policy %q", operation))
	}

	level, err := domain.ParseLevel(e.Level)
	if err != nil {
		return Policy{}, apperrors.Wrap(err, fmt.Sprintf("policy %q", operation))
	}

	bypass := true
	if e.SuperuserBypass != nil {
		bypass = *e.SuperuserBypass
	}

	methods := make([]string, 0, len(e.Methods))
	for _, method := range e.Methods {
		methods = append(methods, strings.ToUpper(strings.TrimSpace(method)))
	}

	return Policy{
		Operation:       operation,
		Action:          strings.TrimSpace(e.Action),
		Level:           level,
		SuperuserBypass: bypass,
		Methods:         methods,
		Return403:       e.Return403,
	}, nil
}
