// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package clauses

import "fmt"

// ClauseNotFoundError reports a clause name with no entry in the Store.
type ClauseNotFoundError struct {
	// Name is the clause name exactly as the caller supplied it.
	Name string
}

func (e *ClauseNotFoundError) Error() string {
	return fmt.Sprintf("clause %q not found in document", e.Name)
}

// Message returns the user-facing text for this failure.
func (e *ClauseNotFoundError) Message() string {
	return fmt.Sprintf("Clause '%s' not found in document.", e.Name)
}

// FieldNotFoundError reports that an extraction rule matched nothing.
type FieldNotFoundError struct {
	Clause string
	Field  FieldKind
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %s not found in clause %q", e.Field, e.Clause)
}

// Message returns the field-specific user-facing text.
func (e *FieldNotFoundError) Message() string {
	switch e.Field {
	case FieldDuration:
		return "Duration not explicitly stated."
	case FieldScope:
		return "Scope details not found."
	case FieldAmount:
		return "No monetary amount found."
	case FieldParties:
		return "Parties not found."
	default:
		return fmt.Sprintf("Could not find '%s' in %s clause.", e.Field, e.Clause)
	}
}
