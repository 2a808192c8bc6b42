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

package types

import "strings"

// UserContext is the authenticated caller identity for a single request.
// It is populated from verified JWT claims by the gateway and passed as an
// explicit parameter through the dispatcher into every tool invocation.
//
// Fields:
//   - Username: the JWT "name" claim
//   - Permissions: the JWT "permissions" claim (or the database fallback)
//   - BearerToken: the caller's raw JWT, forwarded to the external backend
//     so write operations run under the caller's own credentials
//   - SASToken: optional Azure SAS credential claim, passed through untouched
//     for the blob-storage path; the agent core never reads it
type UserContext struct {
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
	BearerToken string   `json:"-"`
	SASToken    string   `json:"-"`
}

// HasPermission checks if the caller holds a specific permission.
func (u *UserContext) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionList renders the held permissions for denial messages.
// Returns "None" when the caller holds no permissions at all.
func (u *UserContext) PermissionList() string {
	if len(u.Permissions) == 0 {
		return "None"
	}
	return strings.Join(u.Permissions, ", ")
}

// DisplayName returns the username, or "Unknown" when the claim was empty.
func (u *UserContext) DisplayName() string {
	if u.Username == "" {
		return "Unknown"
	}
	return u.Username
}
