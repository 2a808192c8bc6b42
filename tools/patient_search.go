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
	"fmt"
	"strings"
	"time"

	"medbotassist/platform/agent/policy"
	"medbotassist/platform/shared/types"
)

const defaultSearchLimit = 5

var viewPermissions = []policy.Permission{policy.UseAgent, policy.ViewPatients}

func searchPatientsTool(repo *Repository) *Tool {
	return &Tool{
		Name: "search_patients",
		Description: "Search for patients using a free-text query matched against name, " +
			"identification number, birth date, phone, and email. Matching is accent- and " +
			"case-insensitive. Examples: 'patients named Maria', 'patients born in 1990', " +
			"'patients with gmail email'.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query to search for patients",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (default: 5)",
				},
			},
			"required": []string{"query"},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			query := argString(args, "query")
			topK, ok := argInt(args, "top_k")
			if !ok || topK <= 0 {
				topK = defaultSearchLimit
			}

			patients, err := repo.AllPatients(ctx)
			if err != nil {
				return fmt.Sprintf("Error searching patients: %v", err)
			}
			if len(patients) == 0 {
				return "No patients found in the database"
			}

			words := strings.Fields(NormalizeForSearch(query))
			var matching []Patient
			for _, p := range patients {
				text := p.searchText()
				for _, word := range words {
					if strings.Contains(text, word) {
						matching = append(matching, p)
						break
					}
				}
			}

			if len(matching) == 0 {
				return fmt.Sprintf("No patients found matching '%s'", query)
			}
			if len(matching) > topK {
				matching = matching[:topK]
			}

			return enumerateDescriptions(
				fmt.Sprintf("Found %d patients matching '%s':\n\n", len(matching), query),
				matching)
		},
	}
}

func searchPatientsByNameTool(repo *Repository) *Tool {
	return &Tool{
		Name: "search_patients_by_name",
		Description: "Search for patients by name. Partial matches are allowed and the " +
			"comparison ignores accents and case.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Patient name to search for",
				},
			},
			"required": []string{"name"},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			name := argString(args, "name")

			patients, err := repo.AllPatients(ctx)
			if err != nil {
				return fmt.Sprintf("Error searching patients: %v", err)
			}

			needle := NormalizeForSearch(name)
			var matching []Patient
			for _, p := range patients {
				if strings.Contains(NormalizeForSearch(p.FullName), needle) {
					matching = append(matching, p)
				}
			}

			if len(matching) == 0 {
				return fmt.Sprintf("No patients found with name containing '%s'", name)
			}

			return enumerateDescriptions(
				fmt.Sprintf("Found %d patient(s) with name containing '%s':\n\n", len(matching), name),
				matching)
		},
	}
}

func searchPatientsByContactTool(repo *Repository) *Tool {
	return &Tool{
		Name: "search_patients_by_contact",
		Description: "Search for patients by contact information: phone number or email " +
			"address. Partial matches are allowed.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"contact_info": map[string]interface{}{
					"type":        "string",
					"description": "Phone number or email to search for (partial matches allowed)",
				},
			},
			"required": []string{"contact_info"},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			contactInfo := argString(args, "contact_info")

			patients, err := repo.AllPatients(ctx)
			if err != nil {
				return fmt.Sprintf("Error searching patients by contact info: %v", err)
			}
			if len(patients) == 0 {
				return "No patients found in the database"
			}

			needle := NormalizeForSearch(contactInfo)
			var matching []Patient
			for _, p := range patients {
				phone := NormalizeForSearch(p.Phone)
				email := NormalizeForSearch(p.Email)
				if strings.Contains(phone, needle) || strings.Contains(email, needle) {
					matching = append(matching, p)
				}
			}

			if len(matching) == 0 {
				return fmt.Sprintf("No patients found with contact info containing '%s'", contactInfo)
			}

			return enumerateDescriptions(
				fmt.Sprintf("Found %d patient(s) with contact info containing '%s':\n\n", len(matching), contactInfo),
				matching)
		},
	}
}

func getPatientByIDTool(repo *Repository) *Tool {
	return &Tool{
		Name: "get_patient_by_id",
		Description: "Get detailed information for a specific patient by their " +
			"identification number (exact match).",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"identification_number": map[string]interface{}{
					"type":        "string",
					"description": "Patient's identification number (exact match)",
				},
			},
			"required": []string{"identification_number"},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			id := argString(args, "identification_number")

			patient, err := repo.PatientByIdentification(ctx, id)
			if err != nil {
				return fmt.Sprintf("Error retrieving patient information: %v", err)
			}
			if patient == nil {
				return fmt.Sprintf("No patient found with identification number '%s'", id)
			}

			today := time.Now()
			response := fmt.Sprintf("**Patient Details for ID: %s**\n\n", id)
			response += patient.Describe(today)

			if !patient.BirthDate.IsZero() {
				phone := patient.Phone
				if phone == "" {
					phone = "N/A"
				}
				response += fmt.Sprintf("\n\n  - Calculated Age: %d years\n", ageAt(patient.BirthDate, today))
				response += fmt.Sprintf("  - Phone: %s\n", phone)
			}

			return response
		},
	}
}

func getPatientsSummaryTool(repo *Repository) *Tool {
	return &Tool{
		Name: "get_patients_summary",
		Description: "Get aggregate statistics for the patient database: total count, " +
			"contact-information coverage, and age distribution. Returns no individual " +
			"patient details.",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			patients, err := repo.AllPatients(ctx)
			if err != nil {
				return fmt.Sprintf("Error getting patients summary: %v", err)
			}
			if len(patients) == 0 {
				return "No patients found in the database"
			}

			withEmail, withPhone, withID := 0, 0, 0
			var ages []int
			today := time.Now()
			for _, p := range patients {
				if p.Email != "" {
					withEmail++
				}
				if p.Phone != "" {
					withPhone++
				}
				if p.IdentificationNumber != "" {
					withID++
				}
				if !p.BirthDate.IsZero() {
					ages = append(ages, ageAt(p.BirthDate, today))
				}
			}

			response := "**Database Summary**\n\n"
			response += fmt.Sprintf("**Total Patients:** %d\n", len(patients))
			response += "**Contact Information:**\n"
			response += fmt.Sprintf("  - With Email: %d\n", withEmail)
			response += fmt.Sprintf("  - With Phone: %d\n", withPhone)
			response += fmt.Sprintf("  - With ID Number: %d\n\n", withID)

			if len(ages) > 0 {
				sum, minAge, maxAge := 0, ages[0], ages[0]
				for _, age := range ages {
					sum += age
					if age < minAge {
						minAge = age
					}
					if age > maxAge {
						maxAge = age
					}
				}
				response += "**Age Statistics:**\n"
				response += fmt.Sprintf("  - Average Age: %.1f years\n", float64(sum)/float64(len(ages)))
				response += fmt.Sprintf("  - Age Range: %d - %d years\n", minAge, maxAge)
				response += fmt.Sprintf("  - Patients with birth date: %d\n\n", len(ages))
			}

			response += "**Nota:** For detailed information on specific patients, provide an " +
				"identification number (IdentificationNumber) or use the specific search tools."

			return response
		},
	}
}

func filterPatientsByDemographicsTool(repo *Repository) *Tool {
	return &Tool{
		Name: "filter_patients_by_demographics",
		Description: "Filter patients by demographic criteria: minimum/maximum age, email " +
			"domain, or year of birth. Any combination of filters may be supplied.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"age_min": map[string]interface{}{
					"type":        "integer",
					"description": "Minimum age filter",
				},
				"age_max": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum age filter",
				},
				"email_domain": map[string]interface{}{
					"type":        "string",
					"description": "Email domain filter (e.g., gmail.com)",
				},
				"year_of_birth": map[string]interface{}{
					"type":        "integer",
					"description": "Year of birth filter",
				},
			},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			ageMin, hasAgeMin := argInt(args, "age_min")
			ageMax, hasAgeMax := argInt(args, "age_max")
			emailDomain := argString(args, "email_domain")
			yearOfBirth, hasYear := argInt(args, "year_of_birth")

			patients, err := repo.AllPatients(ctx)
			if err != nil {
				return fmt.Sprintf("Error filtering patients: %v", err)
			}
			if len(patients) == 0 {
				return "No patients found in the database"
			}

			today := time.Now()
			filtered := patients

			if hasAgeMin || hasAgeMax {
				var kept []Patient
				for _, p := range filtered {
					if p.BirthDate.IsZero() {
						continue
					}
					age := ageAt(p.BirthDate, today)
					if hasAgeMin && age < ageMin {
						continue
					}
					if hasAgeMax && age > ageMax {
						continue
					}
					kept = append(kept, p)
				}
				filtered = kept
			}

			if emailDomain != "" {
				needle := NormalizeForSearch(emailDomain)
				var kept []Patient
				for _, p := range filtered {
					if strings.HasSuffix(NormalizeForSearch(p.Email), needle) {
						kept = append(kept, p)
					}
				}
				filtered = kept
			}

			if hasYear {
				var kept []Patient
				for _, p := range filtered {
					if !p.BirthDate.IsZero() && p.BirthDate.Year() == yearOfBirth {
						kept = append(kept, p)
					}
				}
				filtered = kept
			}

			if len(filtered) == 0 {
				return "No patients found matching the specified criteria"
			}

			var filters []string
			if hasAgeMin {
				filters = append(filters, fmt.Sprintf("age >= %d", ageMin))
			}
			if hasAgeMax {
				filters = append(filters, fmt.Sprintf("age <= %d", ageMax))
			}
			if emailDomain != "" {
				filters = append(filters, fmt.Sprintf("email domain: %s", emailDomain))
			}
			if hasYear {
				filters = append(filters, fmt.Sprintf("born in: %d", yearOfBirth))
			}

			return enumerateDescriptions(
				fmt.Sprintf("Found %d patient(s) matching criteria: %s\n\n",
					len(filtered), strings.Join(filters, ", ")),
				filtered)
		},
	}
}

// enumerateDescriptions renders a numbered list of patient descriptions under
// the given header.
func enumerateDescriptions(header string, patients []Patient) string {
	today := time.Now()
	var b strings.Builder
	b.WriteString(header)
	for i, p := range patients {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, p.Describe(today))
	}
	return b.String()
}
