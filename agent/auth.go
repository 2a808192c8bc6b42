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

package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"medbotassist/platform/connectors/config"
	"medbotassist/platform/shared/logger"
	"medbotassist/platform/shared/types"
	"medbotassist/platform/tools"
)

// permissionCacheTTL bounds how long database-loaded permissions are reused
// for callers whose tokens carry no permissions claim.
const permissionCacheTTL = 5 * time.Minute

// Authenticator verifies bearer JWTs and resolves caller permissions.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	repo     *tools.Repository
	cache    *config.Cache[[]string]
	log      *logger.Logger
}

// NewAuthenticator creates an authenticator. The repository is the database
// fallback for tokens without a permissions claim; it may be nil, in which
// case such callers end up with no permissions.
func NewAuthenticator(secret []byte, issuer, audience string, repo *tools.Repository) *Authenticator {
	return &Authenticator{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		repo:     repo,
		cache:    config.NewCache[[]string](permissionCacheTTL),
		log:      logger.New("auth"),
	}
}

// Authenticate validates the Authorization header and builds the caller
// identity. The raw token is kept on the identity so write tools can call
// the external backend under the caller's own credentials.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (*types.UserContext, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	username := getClaimString(claims, "name")
	if username == "" {
		return nil, fmt.Errorf("username not found in token")
	}

	permissions := getClaimStringArray(claims, "permissions")
	if len(permissions) == 0 {
		permissions = a.lookupPermissions(ctx, username)
	}

	return &types.UserContext{
		Username:    username,
		Permissions: permissions,
		BearerToken: raw,
		SASToken:    getClaimString(claims, "sasToken"),
	}, nil
}

// lookupPermissions loads permissions by username from the database, with a
// short-lived cache in front. Lookup failures leave the caller with no
// permissions; the policy layer produces the denial.
func (a *Authenticator) lookupPermissions(ctx context.Context, username string) []string {
	if cached, ok := a.cache.Get(username); ok {
		return cached
	}
	if a.repo == nil {
		return nil
	}

	permissions, err := a.repo.UserPermissions(ctx, username)
	if err != nil {
		a.log.Warn(username, "", "database permission lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	a.cache.Set(username, permissions)
	return permissions
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", fmt.Errorf("Authorization header must use the Bearer scheme")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", fmt.Errorf("empty bearer token")
	}
	return token, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func getClaimStringArray(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
