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

package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrAllSourcesFailed is returned when no source of a scatter-gather
	// produced samples.
	ErrAllSourcesFailed = errors.New("all sources failed")
	errNilSource        = errors.New("fetch source is nil")
)

// TransientFetchError reports a load that kept failing after every retry.
type TransientFetchError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// PartialSourceFailure records a source that contributed nothing to a
// scatter-gather because its load failed.
type PartialSourceFailure struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

func (e *PartialSourceFailure) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *PartialSourceFailure) Unwrap() error {
	return e.Err
}
