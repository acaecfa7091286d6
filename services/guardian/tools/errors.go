// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"errors"
	"fmt"
)

// MissingArgumentError reports a required argument that was absent or blank.
type MissingArgumentError struct {
	Tool     string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: missing required argument %s", e.Tool, e.Argument)
}

// Message returns the user-facing text.
func (e *MissingArgumentError) Message() string {
	return fmt.Sprintf("Error: %s is required.", e.Argument)
}

// UnknownToolError reports a tool name outside the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "unknown tool: " + e.Name
}

// Message returns the user-facing text.
func (e *UnknownToolError) Message() string {
	return e.Error()
}

// displayable is implemented by errors that carry a user-facing message.
type displayable interface {
	Message() string
}

// Render converts a dispatch error into its display string.
//
// Errors from the clauses and tools packages render to their fixed
// messages. Anything else renders as "Error: <err>".
func Render(err error) string {
	if err == nil {
		return ""
	}
	var d displayable
	if errors.As(err, &d) {
		return d.Message()
	}
	return "Error: " + err.Error()
}
