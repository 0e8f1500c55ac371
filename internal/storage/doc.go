/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists conversion results.
// Output documents are written to <output>/<type>s/<identifier>.xml with transactional writes (temp file, fsync, rename);
// the existence of that file marks the record as done.
// Committed decisions are tracked in an embedded SQLite index at <output>/.licensexml/index.sqlite.
// The index is bookkeeping only and is rebuilt empty when it is found corrupt.
package storage
