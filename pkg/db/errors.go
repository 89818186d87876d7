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

package db

import "errors"

var (
	// Operation errors.

	ErrFailedToScan   = errors.New("failed to scan")
	ErrFailedToQuery  = errors.New("failed to query")
	ErrFailedToInsert = errors.New("failed to insert")
	ErrFailedToUpdate = errors.New("failed to update")
	ErrFailedOpenDB   = errors.New("failed to open database")

	// Lookup errors.

	ErrEntityNotFound = errors.New("monitored service not found")

	// Validation errors.

	ErrServiceIDRequired = errors.New("service id is required")
	ErrSampleNil         = errors.New("sample record is nil")
	ErrSampleTimestamp   = errors.New("sample timestamp is required")
	ErrPatchEmpty        = errors.New("status patch carries no fields")
	ErrDatabaseConfigNil = errors.New("database configuration is nil")
)
