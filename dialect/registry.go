// Copyright 2026 The Sqlfuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dialect

import "fmt"

// registry maps the driver token recognized after "dbi:" to a factory
// for the matching Adapter. Mirrors the teacher's gcs.Bucket selection,
// which picks a concrete implementation by connection-string prefix
// rather than by reflecting on a class hierarchy (see spec §9's note on
// dialect-adapter dispatch).
var registry = map[string]func() Adapter{
	"SQLite": NewSQLite,
	"mysql":  NewMySQL,
	"Pg":     NewPostgres,
}

// Register adds or replaces the factory for a driver token. Exposed so
// that out-of-tree backends can plug themselves in without touching
// this package.
func Register(driverToken string, factory func() Adapter) {
	registry[driverToken] = factory
}

// ForDataSource parses dsn and returns the Adapter and driver-specific
// remainder selected by its driver token.
func ForDataSource(dsn string) (Adapter, string, error) {
	driverToken, rest, err := ParseDataSource(dsn)
	if err != nil {
		return nil, "", err
	}
	factory, ok := registry[driverToken]
	if !ok {
		return nil, "", fmt.Errorf("unrecognized dialect driver %q", driverToken)
	}
	return factory(), rest, nil
}
