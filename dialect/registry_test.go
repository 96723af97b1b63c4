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

package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sqlfuse/sqlfuse/dialect"
)

type RegistryTest struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTest))
}

func (t *RegistryTest) TestParseDataSource() {
	driver, rest, err := dialect.ParseDataSource("dbi:SQLite:/tmp/x.db")
	require.NoError(t.T(), err)
	t.Equal("SQLite", driver)
	t.Equal("/tmp/x.db", rest)

	driver, rest, err = dialect.ParseDataSource("dbi:Pg:postgres://host/db?sslmode=disable")
	require.NoError(t.T(), err)
	t.Equal("Pg", driver)
	t.Equal("postgres://host/db?sslmode=disable", rest)
}

func (t *RegistryTest) TestParseDataSourceRejectsMalformed() {
	for _, dsn := range []string{"", "SQLite:/tmp/x.db", "dbi:", "dbi:SQLite"} {
		_, _, err := dialect.ParseDataSource(dsn)
		t.Error(err, "dsn %q should be rejected", dsn)
	}
}

func (t *RegistryTest) TestForDataSourceSelectsAdapter() {
	for driver, name := range map[string]string{"SQLite": "SQLite", "mysql": "mysql", "Pg": "Pg"} {
		adapter, rest, err := dialect.ForDataSource("dbi:" + driver + ":rest")
		require.NoError(t.T(), err)
		t.Equal(name, adapter.Name())
		t.Equal("rest", rest)
	}
}

func (t *RegistryTest) TestForDataSourceUnknownDriver() {
	_, _, err := dialect.ForDataSource("dbi:oracle:rest")
	t.Error(err)
}

func (t *RegistryTest) TestRegisterAddsCustomDriver() {
	dialect.Register("fake", func() dialect.Adapter { return fakeAdapter{} })
	adapter, rest, err := dialect.ForDataSource("dbi:fake:payload")
	require.NoError(t.T(), err)
	t.Equal("fake", adapter.Name())
	t.Equal("payload", rest)
}

// fakeAdapter satisfies dialect.Adapter just enough to prove Register's
// plug-in seam works; none of its methods are expected to be called.
type fakeAdapter struct{ dialect.Adapter }

func (fakeAdapter) Name() string { return "fake" }

func TestEmbeddedAndClientServerThresholdsDiffer(t *testing.T) {
	sqlite := dialect.NewSQLite()
	mysql := dialect.NewMySQL()
	assert.Greater(t, sqlite.FlushThreshold(), mysql.FlushThreshold())
	assert.Equal(t, sqlite.BlockSize(), mysql.BlockSize())
}
