// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

//go:embed routing_policy.yaml
var defaultRoutingPolicyYAML []byte

// Defaults applied when a field is absent from the policy file.
const (
	DefaultConfidenceThreshold  = 0.72
	DefaultEscalationTimeout    = 10 * time.Second
	DefaultElaborationTimeout   = 20 * time.Second
	DefaultSummaryMaxWords      = 80
	DefaultElaborationMaxTokens = 512
)

// RoutingPolicy controls the hybrid local/remote decision.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type RoutingPolicy struct {
	// ConfidenceThreshold is the minimum local confidence that stays on-device.
	// A confidence exactly equal to the threshold is not escalated.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// DeviceTools can be answered from the document alone.
	DeviceTools []string `yaml:"device_tools"`

	// CloudRequiredTools need knowledge outside the document.
	CloudRequiredTools []string `yaml:"cloud_required_tools"`

	// EscalationTimeout bounds a remote routing call.
	EscalationTimeout time.Duration `yaml:"escalation_timeout"`

	// ElaborationTimeout bounds a remote elaboration call.
	ElaborationTimeout time.Duration `yaml:"elaboration_timeout"`

	// SummaryMaxWords is the anonymized summary budget for disclosure.
	SummaryMaxWords int `yaml:"summary_max_words"`

	// ElaborationMaxTokens caps the remote elaboration output.
	ElaborationMaxTokens int `yaml:"elaboration_max_tokens"`
}

// CloudRequiredSet returns CloudRequiredTools as a set.
func (p *RoutingPolicy) CloudRequiredSet() map[string]bool {
	set := make(map[string]bool, len(p.CloudRequiredTools))
	for _, name := range p.CloudRequiredTools {
		set[name] = true
	}
	return set
}

var (
	routingPolicyMu      sync.RWMutex
	routingPolicyOnce    sync.Once
	cachedRoutingPolicy  *RoutingPolicy
	routingPolicyLoadErr error
)

// GetRoutingPolicy returns the cached embedded routing policy.
//
// Thread Safety: Safe for concurrent use.
func GetRoutingPolicy(ctx context.Context) (*RoutingPolicy, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetRoutingPolicy: ctx must not be nil")
	}

	routingPolicyMu.RLock()
	if cachedRoutingPolicy != nil || routingPolicyLoadErr != nil {
		p, err := cachedRoutingPolicy, routingPolicyLoadErr
		routingPolicyMu.RUnlock()
		return p, err
	}
	routingPolicyMu.RUnlock()

	routingPolicyMu.Lock()
	defer routingPolicyMu.Unlock()

	if cachedRoutingPolicy != nil || routingPolicyLoadErr != nil {
		return cachedRoutingPolicy, routingPolicyLoadErr
	}

	routingPolicyOnce.Do(func() {
		cachedRoutingPolicy, routingPolicyLoadErr = LoadRoutingPolicy(ctx, defaultRoutingPolicyYAML)
	})

	return cachedRoutingPolicy, routingPolicyLoadErr
}

// MustGetRoutingPolicy panics if the embedded policy is invalid.
func MustGetRoutingPolicy() *RoutingPolicy {
	p, err := GetRoutingPolicy(context.Background())
	if err != nil {
		panic(fmt.Sprintf("embedded routing policy is invalid: %v", err))
	}
	return p
}

// ResetRoutingPolicy clears the cached policy for testing.
func ResetRoutingPolicy() {
	routingPolicyMu.Lock()
	defer routingPolicyMu.Unlock()
	cachedRoutingPolicy = nil
	routingPolicyLoadErr = nil
	routingPolicyOnce = sync.Once{}
}

// LoadRoutingPolicy parses and validates a routing policy from YAML bytes.
//
// Description:
//
//	Applies defaults for absent numeric fields, then validates the
//	threshold range and that no tool is both device and cloud-required.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes.
//
// Outputs:
//
//	*RoutingPolicy - The validated policy.
//	error - Non-nil if parsing or validation fails.
func LoadRoutingPolicy(ctx context.Context, data []byte) (*RoutingPolicy, error) {
	_, span := otel.Tracer(configTracerName).Start(ctx, "config.LoadRoutingPolicy")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadRoutingPolicy: empty YAML data")
	}
	if len(data) > MaxYAMLSize {
		return nil, fmt.Errorf("LoadRoutingPolicy: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLSize)
	}

	p := RoutingPolicy{ConfidenceThreshold: -1}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("LoadRoutingPolicy: parsing YAML: %w", err)
	}

	if p.ConfidenceThreshold < 0 {
		p.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if p.EscalationTimeout <= 0 {
		p.EscalationTimeout = DefaultEscalationTimeout
	}
	if p.ElaborationTimeout <= 0 {
		p.ElaborationTimeout = DefaultElaborationTimeout
	}
	if p.SummaryMaxWords <= 0 {
		p.SummaryMaxWords = DefaultSummaryMaxWords
	}
	if p.ElaborationMaxTokens <= 0 {
		p.ElaborationMaxTokens = DefaultElaborationMaxTokens
	}

	if err := validateRoutingPolicy(&p); err != nil {
		return nil, fmt.Errorf("LoadRoutingPolicy: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Float64("confidence_threshold", p.ConfidenceThreshold),
		attribute.Int("device_tools", len(p.DeviceTools)),
		attribute.Int("cloud_required_tools", len(p.CloudRequiredTools)),
	)

	slog.Debug("routing policy loaded",
		slog.Float64("confidence_threshold", p.ConfidenceThreshold),
		slog.Duration("escalation_timeout", p.EscalationTimeout),
		slog.Duration("elaboration_timeout", p.ElaborationTimeout),
	)

	return &p, nil
}

func validateRoutingPolicy(p *RoutingPolicy) error {
	if p.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be within [0,1], got %v", p.ConfidenceThreshold)
	}
	if len(p.CloudRequiredTools) == 0 {
		return fmt.Errorf("cloud_required_tools must not be empty")
	}
	device := make(map[string]bool, len(p.DeviceTools))
	for _, name := range p.DeviceTools {
		device[name] = true
	}
	for _, name := range p.CloudRequiredTools {
		if device[name] {
			return fmt.Errorf("tool %q is listed as both device and cloud-required", name)
		}
	}
	return nil
}
