// internal/app/system/txn/txn.go

// Package txn wraps multi-document work in a MongoDB transaction, falling
// back to plain sequential execution on deployments that do not support
// transactions (standalone servers without a replica set).
package txn

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/tierhub/internal/app/system/faults"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithTransaction runs fn inside a transaction when the server supports
// one. On standalone deployments the fn runs directly; callers must keep
// their writes safe to partially apply in that mode (guarded updates,
// idempotent inserts).
//
// A serialisation conflict (two transactions writing the same documents)
// surfaces as a retriable faults.ConflictError; the helper itself never
// retries.
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fn(ctx)
	}
	if err != nil && isWriteConflict(err) {
		return &faults.ConflictError{Err: err}
	}
	return err
}

// isWriteConflict recognizes the server's transient transaction errors.
func isWriteConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// 112 WriteConflict, or the driver's transient label.
		return cmdErr.Code == 112 || cmdErr.HasErrorLabel("TransientTransactionError")
	}
	var wex mongo.WriteException
	if errors.As(err, &wex) {
		return wex.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// IsNotSupported reports whether err indicates the server cannot run
// transactions. It recognizes the driver's command error codes and, for
// errors that arrive as plain text, pairs of keywords the server uses in
// those messages.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// 20 IllegalOperation wrapper, 51 IllegalOperation,
		// 263 OperationNotSupportedInTransaction
		switch cmdErr.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	pairs := [][2]string{
		{"transaction", "replica set"},
		{"transaction", "session"},
		{"transaction", "illegal operation"},
		{"session", "not supported"},
	}
	for _, p := range pairs {
		if strings.Contains(msg, p[0]) && strings.Contains(msg, p[1]) {
			return true
		}
	}
	return false
}
