/*
 * Copyright 2025 Carver Automation Corporation.
 *
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

package models

import (
	"errors"
	"fmt"
	"strings"
)

var errInvalidScope = errors.New("invalid source scope")

// ScopeKind selects which sources feed a view.
type ScopeKind string

const (
	ScopeAll     ScopeKind = "all"
	ScopeDefault ScopeKind = "default"
	ScopeRegion  ScopeKind = "region"
)

// SourceScope is the source selection of a view. Region scopes name a single
// regional agent.
type SourceScope struct {
	Kind    ScopeKind
	Region  string
	AgentID string
}

// AllSources is the scope that merges the default checker with every online
// regional agent.
func AllSources() SourceScope {
	return SourceScope{Kind: ScopeAll}
}

// ParseSourceScope accepts "all", "default" or "region:<name>:<agentID>".
// An empty string is treated as "all".
func ParseSourceScope(raw string) (SourceScope, error) {
	raw = strings.TrimSpace(raw)

	switch {
	case raw == "" || raw == string(ScopeAll):
		return AllSources(), nil
	case raw == string(ScopeDefault):
		return SourceScope{Kind: ScopeDefault}, nil
	case strings.HasPrefix(raw, string(ScopeRegion)+":"):
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return SourceScope{}, fmt.Errorf("%w: %q", errInvalidScope, raw)
		}

		return SourceScope{Kind: ScopeRegion, Region: parts[1], AgentID: parts[2]}, nil
	default:
		return SourceScope{}, fmt.Errorf("%w: %q", errInvalidScope, raw)
	}
}

func (s SourceScope) String() string {
	switch s.Kind {
	case ScopeRegion:
		return fmt.Sprintf("%s:%s:%s", ScopeRegion, s.Region, s.AgentID)
	case ScopeDefault:
		return string(ScopeDefault)
	default:
		return string(ScopeAll)
	}
}

// Includes reports whether samples from src belong to this scope.
func (s SourceScope) Includes(src Source) bool {
	switch s.Kind {
	case ScopeDefault:
		return src.IsDefault()
	case ScopeRegion:
		return src.RegionName == s.Region && src.AgentID == s.AgentID
	default:
		return true
	}
}
