// Copyright 2025 MedBotAssist
// SPDX-License-Identifier: Apache-2.0
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

import (
	"context"
	"errors"
	"time"

	"medbotassist/platform/connectors/base"
	"medbotassist/platform/shared/types"
)

// stubConnector is a scriptable base.Connector for handler tests.
type stubConnector struct {
	queryFn func(ctx context.Context, q *base.Query) (*base.QueryResult, error)
	execFn  func(ctx context.Context, cmd *base.Command) (*base.CommandResult, error)
}

func (s *stubConnector) Connect(ctx context.Context, config *base.ConnectorConfig) error { return nil }
func (s *stubConnector) Disconnect(ctx context.Context) error                            { return nil }
func (s *stubConnector) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	return &base.HealthStatus{Healthy: true, Timestamp: time.Now()}, nil
}

func (s *stubConnector) Query(ctx context.Context, q *base.Query) (*base.QueryResult, error) {
	if s.queryFn == nil {
		return nil, errors.New("stub: unexpected Query")
	}
	return s.queryFn(ctx, q)
}

func (s *stubConnector) Execute(ctx context.Context, cmd *base.Command) (*base.CommandResult, error) {
	if s.execFn == nil {
		return nil, errors.New("stub: unexpected Execute")
	}
	return s.execFn(ctx, cmd)
}

func (s *stubConnector) Name() string           { return "stub" }
func (s *stubConnector) Type() string           { return "custom" }
func (s *stubConnector) Version() string        { return "0.0.0" }
func (s *stubConnector) Capabilities() []string { return []string{"query", "execute"} }

// fixedPatientsConnector returns the given rows for every query.
func fixedPatientsConnector(rows []map[string]interface{}) *stubConnector {
	return &stubConnector{
		queryFn: func(ctx context.Context, q *base.Query) (*base.QueryResult, error) {
			return &base.QueryResult{Rows: rows, RowCount: len(rows)}, nil
		},
	}
}

func testPatientRows() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"PatientId":            int64(1),
			"FullName":             "José Álvarez",
			"IdentificationNumber": "10001",
			"BirthDate":            time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC),
			"Phone":                "+57-300-555-0001",
			"Email":                "jose.alvarez@gmail.com",
		},
		{
			"PatientId":            int64(2),
			"FullName":             "María García",
			"IdentificationNumber": "10002",
			"BirthDate":            time.Date(1985, 12, 10, 0, 0, 0, 0, time.UTC),
			"Phone":                "+57-301-555-0002",
			"Email":                "maria.garcia@hospital.org",
		},
		{
			"PatientId":            int64(3),
			"FullName":             "Pedro Rojas",
			"IdentificationNumber": "10003",
			"BirthDate":            nil,
			"Phone":                "",
			"Email":                "",
		},
	}
}

func viewerContext() *types.UserContext {
	return &types.UserContext{
		Username:    "dr.garcia",
		Permissions: []string{"UseAgent", "ViewPatients"},
		BearerToken: "viewer-token",
	}
}

func managerContext() *types.UserContext {
	return &types.UserContext{
		Username:    "admin.lopez",
		Permissions: []string{"UseAgent", "ViewPatients", "ManagePatients"},
		BearerToken: "manager-token",
	}
}
