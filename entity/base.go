/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type auditorKey struct{}

// clock stamps the auditing dates.
var clock = time.Now

// WithAuditor returns a context whose writes are attributed to auditor.
func WithAuditor(ctx context.Context, auditor string) context.Context {
	return context.WithValue(ctx, auditorKey{}, auditor)
}

// AuditorFrom returns the auditor stored in ctx, or a random UUID.
func AuditorFrom(ctx context.Context) string {
	if auditor, ok := ctx.Value(auditorKey{}).(string); ok && auditor != "" {
		return auditor
	}
	return uuid.NewString()
}

// BaseEntity carries the auditing columns. Embedding types get them stamped
// on every INSERT and UPDATE that has the entity as its model.
type BaseEntity struct {
	CreatedDate      time.Time `bun:"created_date,nullzero" json:"createdDate"`
	LastModifiedDate time.Time `bun:"last_modified_date,nullzero" json:"lastModifiedDate"`
	CreatedBy        string    `bun:"created_by,nullzero" json:"createdBy"`
	LastModifiedBy   string    `bun:"last_modified_by,nullzero" json:"lastModifiedBy"`
}

var _ bun.BeforeAppendModelHook = (*BaseEntity)(nil)

func (e *BaseEntity) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		now, auditor := clock(), AuditorFrom(ctx)
		if e.CreatedDate.IsZero() {
			e.CreatedDate = now
		}
		if e.CreatedBy == "" {
			e.CreatedBy = auditor
		}
		e.LastModifiedDate = now
		e.LastModifiedBy = auditor
	case *bun.UpdateQuery:
		e.LastModifiedDate = clock()
		e.LastModifiedBy = AuditorFrom(ctx)
	}
	return nil
}
