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
Package tools implements the agent's tool functions: the operations the LLM
can invoke on behalf of an authenticated caller.

# Overview

Tools come in two families. Read tools query the patient store through the
PostgreSQL connector and require UseAgent + ViewPatients. Write tools call
the external patient backend through the HTTP connector with the caller's
own bearer token and require UseAgent + ManagePatients.

Every tool is registered in a static Registry with its name, description,
JSON-schema parameters (handed to the LLM as function definitions), and its
required permissions in evaluation order. The Registry checks permissions
before running a handler; a failed check returns the standard denial text
from agent/policy instead of executing anything.

Handlers never return Go errors. Every outcome, including database and
backend failures, is folded into the returned text so the LLM can relay it
to the user.

# Text Matching

Patient searches are accent- and case-insensitive: both the query and the
stored fields pass through NormalizeForSearch (NFD decomposition, combining
marks stripped, lowercased, whitespace collapsed) before substring matching.

# Usage

	repo := tools.NewRepository(patientsDB)
	registry := tools.NewRegistry(repo, patientBackend)

	text := registry.Execute(ctx, "search_patients",
	    map[string]interface{}{"query": "maria"}, caller)
*/
package tools
