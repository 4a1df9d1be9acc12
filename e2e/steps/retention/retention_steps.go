package retention

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	POSTWithHeaders(path string, body interface{}, headers map[string]string) error
	GET(path string, headers map[string]string) error
	StatusCode() int
	GetResponseField(field string) (interface{}, error)
	GetAdminToken() string
}

// RegisterSteps registers deletion-lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &retentionSteps{tc: tc}

	// Self-service steps
	ctx.Step(`^I request deletion of my account$`, steps.requestDeletion)
	ctx.Step(`^the deletion should be immediate$`, steps.deletionShouldBeImmediate)
	ctx.Step(`^the deletion should be scheduled for a later date$`, steps.deletionShouldBeScheduled)
	ctx.Step(`^my access token should no longer be accepted$`, steps.tokenShouldBeRejected)

	// Operator steps
	ctx.Step(`^I trigger a retention sweep as an operator$`, steps.triggerSweep)
	ctx.Step(`^I list pending deletions as an operator$`, steps.listPending)
	ctx.Step(`^I read the audit ledger as an operator$`, steps.listAuditLedger)
}

type retentionSteps struct {
	tc TestContext
}

func (s *retentionSteps) requestDeletion(ctx context.Context) error {
	return s.tc.POST("/v1/me/deletion", map[string]interface{}{})
}

func (s *retentionSteps) deletionShouldBeImmediate(ctx context.Context) error {
	immediate, err := s.tc.GetResponseField("immediate")
	if err != nil {
		return err
	}
	if immediate != true {
		return fmt.Errorf("expected an immediate deletion, got immediate=%v", immediate)
	}
	return nil
}

func (s *retentionSteps) deletionShouldBeScheduled(ctx context.Context) error {
	immediate, err := s.tc.GetResponseField("immediate")
	if err != nil {
		return err
	}
	if immediate != false {
		return fmt.Errorf("expected a scheduled deletion, got immediate=%v", immediate)
	}

	date, err := s.tc.GetResponseField("deletionDate")
	if err != nil {
		return err
	}
	if raw, ok := date.(string); !ok || raw == "" {
		return fmt.Errorf("scheduled deletion carried no deletionDate")
	}
	return nil
}

// tokenShouldBeRejected replays the deletion request with the token stored
// by the login step. Immediate deletion revokes every session, so the
// replay must bounce off authentication.
func (s *retentionSteps) tokenShouldBeRejected(ctx context.Context) error {
	if err := s.tc.POST("/v1/me/deletion", map[string]interface{}{}); err != nil {
		return err
	}
	if s.tc.StatusCode() != 401 {
		return fmt.Errorf("expected status 401 for a revoked token, got %d", s.tc.StatusCode())
	}
	return nil
}

func (s *retentionSteps) triggerSweep(ctx context.Context) error {
	headers, err := s.adminHeaders()
	if err != nil {
		return err
	}
	return s.tc.POSTWithHeaders("/v1/admin/retention/run", map[string]interface{}{}, headers)
}

func (s *retentionSteps) listPending(ctx context.Context) error {
	headers, err := s.adminHeaders()
	if err != nil {
		return err
	}
	return s.tc.GET("/v1/admin/retention/pending", headers)
}

func (s *retentionSteps) listAuditLedger(ctx context.Context) error {
	headers, err := s.adminHeaders()
	if err != nil {
		return err
	}
	return s.tc.GET("/v1/admin/audit", headers)
}

func (s *retentionSteps) adminHeaders() (map[string]string, error) {
	token := s.tc.GetAdminToken()
	if token == "" {
		return nil, fmt.Errorf("no operator token configured for the suite")
	}
	return map[string]string{"X-Admin-Token": token}, nil
}
