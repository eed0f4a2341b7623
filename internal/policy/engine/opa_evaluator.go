package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const allowQuery = "data.attendance.authz.allow"

// DefaultRegoPolicy: admins may do anything; instructors create sessions and manage the sessions they
// own; any authenticated caller may submit.
const DefaultRegoPolicy = `package attendance.authz

default allow := false

owner_actions := {"stop_session", "delete_sessions", "get_submissions"}

allow if input.caller.role == "admin"

allow if {
	input.action in {"create_session", "list_sessions", "clear_all"}
	input.caller.role == "instructor"
	input.caller.id != ""
}

allow if {
	input.action in owner_actions
	input.caller.role == "instructor"
	input.caller.id != ""
	input.caller.id == input.resource.owner_id
}

allow if {
	input.action == "submit"
	input.caller.id != ""
}
`

// OPAEvaluator evaluates the authorization policy with an in-process OPA Rego query prepared once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles rules (DefaultRegoPolicy when empty). The policy must define
// data.attendance.authz.allow.
func NewOPAEvaluator(ctx context.Context, rules string) (*OPAEvaluator, error) {
	if rules == "" {
		rules = DefaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": rules})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	pq, err := rego.New(rego.Query(allowQuery), rego.Compiler(compiler)).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// Allow evaluates the policy for in. Evaluation failures deny.
func (e *OPAEvaluator) Allow(ctx context.Context, in Input) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		log.Printf("policy: evaluation failed for %s: %v", in.Action, err)
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, _ := rs[0].Expressions[0].Value.(bool)
	return allowed, nil
}

// HealthCheck verifies that the prepared policy evaluates. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(Input{Action: ActionSubmit})))
	if err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

func buildInput(in Input) map[string]interface{} {
	return map[string]interface{}{
		"action": in.Action,
		"caller": map[string]interface{}{
			"id":   in.CallerID,
			"role": in.CallerRole,
		},
		"resource": map[string]interface{}{
			"owner_id": in.OwnerID,
		},
	}
}
