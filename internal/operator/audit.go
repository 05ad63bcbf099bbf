package operator

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tagrush/backend/internal/models"
)

// LogAction records an operator action in the audit log. Failures are
// logged and returned but never block the action itself.
func LogAction(ctx context.Context, db *sqlx.DB, email, ip, route, action string, details map[string]interface{}, success bool) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil || details == nil {
		detailsJSON = []byte("{}")
	}

	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO operator_audit (operator_email, ip, route, action, details, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), email, ip, route, action, string(detailsJSON), success, time.Now().UTC())

	if err != nil {
		log.Printf("[OPERATOR] Failed to log operator action: %v", err)
	}

	return err
}

// GetAuditLogs retrieves audit entries, newest first, optionally for one
// operator only.
func GetAuditLogs(ctx context.Context, db *sqlx.DB, email string, limit, offset int) ([]models.OperatorAudit, error) {
	logs := []models.OperatorAudit{}
	err := db.SelectContext(ctx, &logs, db.Rebind(`
		SELECT id, operator_email, ip, route, action, details, success, created_at
		FROM operator_audit
		WHERE (? = '' OR operator_email = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`), email, email, limit, offset)
	return logs, err
}
