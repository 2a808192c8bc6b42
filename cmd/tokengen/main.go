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

// Package main mints development JWTs for testing the gateway. It is a dev
// tool only; production tokens come from the identity provider.
//
// Usage:
//
//	tokengen -name dr.garcia -permissions UseAgent,ViewPatients
//
// Environment Variables:
//
//	JWT_SECRET - Signing secret (required, must match the gateway)
//	JWT_ISSUER / JWT_AUDIENCE - Claims stamped into the token
//	JWT_EXPIRATION_MINUTES - Token lifetime (default: 60)
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	name := flag.String("name", "", "username for the 'name' claim (required)")
	permissions := flag.String("permissions", "", "comma-separated permission names")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	expiration := 60
	if v := os.Getenv("JWT_EXPIRATION_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid JWT_EXPIRATION_MINUTES: %q", v)
		}
		expiration = n
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"name": *name,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Duration(expiration) * time.Minute).Unix(),
	}
	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		claims["iss"] = issuer
	}
	if audience := os.Getenv("JWT_AUDIENCE"); audience != "" {
		claims["aud"] = audience
	}
	if *permissions != "" {
		var list []string
		for _, p := range strings.Split(*permissions, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		claims["permissions"] = list
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
