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

/*
Package types provides shared type definitions used across MedBotAssist
components.

# Overview

This package contains common types shared between the HTTP gateway, the
agent dispatcher, and the tool layer. It provides a single source of truth
for the caller identity that flows through every request.

# Caller Identity

UserContext is built once per request from verified JWT claims and passed
explicitly down the call chain (gateway -> dispatcher -> tools). It is
never stored in package-level state: two concurrent requests carry two
independent UserContext values.
*/
package types
