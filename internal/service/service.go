// Package service implements the operations behind the HTTP API: request
// DTO validation, aggregate construction and the optimistic-concurrency
// flow against the repositories.
//
// Every mutating operation follows the same shape: validate the DTO, load
// the current entity when one must exist, apply the change through the
// aggregate, and save citing an entity tag so concurrent writers collide
// instead of overwriting each other.
package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlorgames/parlor/internal/apperr"
	"github.com/parlorgames/parlor/internal/telemetry"
)

// opsCounter creates the per-kind operation counter.
func opsCounter(kind string) metric.Int64Counter {
	counter, _ := telemetry.Meter("parlor/service").Int64Counter(
		"parlor."+kind+".ops",
		metric.WithDescription("Completed "+kind+" operations by type"),
	)
	return counter
}

// record counts a completed operation.
func record(ctx context.Context, counter metric.Int64Counter, op string) {
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// requirePrecondition enforces the write policy that replace and merge
// requests must carry If-Match.
func requirePrecondition(required bool, ifMatch string) error {
	if required && ifMatch == "" {
		return apperr.PreconditionRequired("this operation requires an If-Match header")
	}
	return nil
}

// updateCondition picks the etag cited on save: the caller's If-Match when
// given, otherwise the etag of the entity just loaded, so updates never
// write over a version the request did not see.
func updateCondition(ifMatch, currentETag string) string {
	if ifMatch != "" {
		return ifMatch
	}
	return currentETag
}
