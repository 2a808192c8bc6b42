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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medbotassist/platform/agent/policy"
	"medbotassist/platform/connectors/base"
	"medbotassist/platform/shared/types"
)

var managePermissions = []policy.Permission{policy.UseAgent, policy.ManagePatients}

const (
	createPatientPath = "/Patient/create"
	updatePatientPath = "/Patient/update-patient"
)

// backendPayload is the external backend's patient contract. PatientID is
// always "0"; the backend assigns real ids.
type backendPayload struct {
	PatientID            string `json:"patientId"`
	Name                 string `json:"name"`
	IdentificationNumber string `json:"identificationNumber"`
	DateOfBirth          string `json:"dateOfBirth"`
	Age                  int    `json:"age"`
	PhoneNumber          string `json:"phoneNumber"`
	Email                string `json:"email"`
}

func createPatientTool(backend base.Connector) *Tool {
	return &Tool{
		Name: "create_patient",
		Description: "Create a new patient in the external backend system. The " +
			"identification number must be unique and the date of birth must be in ISO " +
			"format (YYYY-MM-DDTHH:mm:ss.sssZ).",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Full name of the patient",
				},
				"identification_number": map[string]interface{}{
					"type":        "string",
					"description": "Patient's identification number (must be unique)",
				},
				"date_of_birth": map[string]interface{}{
					"type":        "string",
					"description": "Date of birth in ISO format (YYYY-MM-DDTHH:mm:ss.sssZ)",
				},
				"age": map[string]interface{}{
					"type":        "integer",
					"description": "Age of the patient in years",
				},
				"phone_number": map[string]interface{}{
					"type":        "string",
					"description": "Patient's phone number",
				},
				"email": map[string]interface{}{
					"type":        "string",
					"description": "Patient's email address",
				},
			},
			"required": []string{"name", "identification_number", "date_of_birth", "age", "phone_number", "email"},
		},
		Required: managePermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			if caller.BearerToken == "" {
				return "Error: no bearer token available to authenticate with the external backend"
			}

			age, _ := argInt(args, "age")
			payload := backendPayload{
				PatientID:            "0",
				Name:                 argString(args, "name"),
				IdentificationNumber: argString(args, "identification_number"),
				DateOfBirth:          argString(args, "date_of_birth"),
				Age:                  age,
				PhoneNumber:          argString(args, "phone_number"),
				Email:                argString(args, "email"),
			}

			result, err := backend.Execute(ctx, &base.Command{
				Action:    "POST",
				Statement: createPatientPath,
				Parameters: map[string]interface{}{
					"body":         payload,
					"bearer_token": caller.BearerToken,
				},
			})
			if err != nil {
				return fmt.Sprintf("Unexpected error creating patient: %v", err)
			}

			status, body := backendResponse(result)
			switch {
			case status == 200 || status == 201:
				return createSuccessMessage(payload, body)

			case status == 400:
				return validationErrorMessage("created", body,
					"  - The identification number is not duplicated\n"+
						"  - The date format is correct (YYYY-MM-DDTHH:mm:ss.sssZ)\n"+
						"  - The email has a valid format\n"+
						"  - All required fields are complete")

			case status == 401:
				return "Authentication error: the bearer token is invalid or expired"

			case status == 403:
				return "Authorization error: your account is not allowed to create patients in the external backend"

			case status == 0:
				return fmt.Sprintf("Error contacting the external backend: %s", result.Message)

			default:
				return fmt.Sprintf("Error creating patient: %s", serverErrorDetail(status, body))
			}
		},
	}
}

func updatePatientTool(repo *Repository, backend base.Connector) *Tool {
	return &Tool{
		Name: "update_patient",
		Description: "Update patient information in the external backend system. The " +
			"identification number is required; any combination of the other fields may be " +
			"updated. Fields not provided keep their current values.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"identification_number": map[string]interface{}{
					"type":        "string",
					"description": "Patient's identification number (required for lookup)",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "New full name of the patient",
				},
				"date_of_birth": map[string]interface{}{
					"type":        "string",
					"description": "New date of birth in ISO format (YYYY-MM-DDTHH:mm:ss.sssZ)",
				},
				"age": map[string]interface{}{
					"type":        "integer",
					"description": "New age of the patient in years",
				},
				"phone_number": map[string]interface{}{
					"type":        "string",
					"description": "New phone number",
				},
				"email": map[string]interface{}{
					"type":        "string",
					"description": "New email address",
				},
			},
			"required": []string{"identification_number"},
		},
		Required: managePermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			if caller.BearerToken == "" {
				return "Error: no bearer token available to authenticate with the external backend"
			}

			id := argString(args, "identification_number")

			current, err := repo.PatientByIdentification(ctx, id)
			if err != nil {
				return fmt.Sprintf("Unexpected error updating patient: %v", err)
			}
			if current == nil {
				return fmt.Sprintf("Error: could not find patient with identification '%s'", id)
			}

			// The backend expects a complete record: merge the provided fields
			// over the current ones and always send every field.
			payload := backendPayload{
				PatientID:            "0",
				Name:                 current.FullName,
				IdentificationNumber: id,
				DateOfBirth:          isoBirthDate(current.BirthDate),
				PhoneNumber:          current.Phone,
				Email:                current.Email,
			}
			if !current.BirthDate.IsZero() {
				payload.Age = ageAt(current.BirthDate, time.Now())
			}

			var updated []string
			if name := argString(args, "name"); name != "" {
				payload.Name = name
				updated = append(updated, fmt.Sprintf("Name: %s", name))
			}
			if dob := argString(args, "date_of_birth"); dob != "" {
				payload.DateOfBirth = dob
				updated = append(updated, fmt.Sprintf("Date of Birth: %s", dob))
			}
			if age, ok := argInt(args, "age"); ok {
				payload.Age = age
				updated = append(updated, fmt.Sprintf("Age: %d years", age))
			}
			if phone := argString(args, "phone_number"); phone != "" {
				payload.PhoneNumber = phone
				updated = append(updated, fmt.Sprintf("Phone: %s", phone))
			}
			if email := argString(args, "email"); email != "" {
				payload.Email = email
				updated = append(updated, fmt.Sprintf("Email: %s", email))
			}

			result, err := backend.Execute(ctx, &base.Command{
				Action:    "PUT",
				Statement: updatePatientPath,
				Parameters: map[string]interface{}{
					"body":         payload,
					"bearer_token": caller.BearerToken,
				},
			})
			if err != nil {
				return fmt.Sprintf("Unexpected error updating patient: %v", err)
			}

			status, body := backendResponse(result)
			switch {
			case status == 200 || status == 204:
				return updateSuccessMessage(id, updated)

			case status == 400:
				return validationErrorMessage("updated", body,
					"  - The identification number is valid\n"+
						"  - The date format is correct (YYYY-MM-DDTHH:mm:ss.sssZ)\n"+
						"  - The email has a valid format\n"+
						"  - The provided fields are valid")

			case status == 401:
				return "Authentication error: the bearer token is invalid or expired"

			case status == 403:
				return "Authorization error: your account is not allowed to update patients in the external backend"

			case status == 404:
				return fmt.Sprintf("Error: patient with identification '%s' was not found in the external backend", id)

			case status == 0:
				return fmt.Sprintf("Error contacting the external backend: %s", result.Message)

			default:
				return fmt.Sprintf("Error updating patient: %s", serverErrorDetail(status, body))
			}
		},
	}
}

// backendResponse extracts the status code and body the HTTP connector
// surfaces in CommandResult metadata. A zero status means the request never
// reached the backend.
func backendResponse(result *base.CommandResult) (int, string) {
	if result == nil || result.Metadata == nil {
		return 0, ""
	}
	status, _ := result.Metadata["status_code"].(int)
	body, _ := result.Metadata["body"].(string)
	return status, body
}

func createSuccessMessage(p backendPayload, body string) string {
	patientID := "N/A"
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		if id, ok := parsed["patientId"]; ok {
			patientID = fmt.Sprintf("%v", id)
		}
	}

	return fmt.Sprintf(`**Patient Created Successfully**

**Patient information:**
  - System ID: %s
  - Name: %s
  - Identification Number: %s
  - Date of Birth: %s
  - Age: %d years
  - Phone: %s
  - Email: %s

The patient has been registered in the system.`,
		patientID, p.Name, p.IdentificationNumber, p.DateOfBirth, p.Age, p.PhoneNumber, p.Email)
}

func updateSuccessMessage(id string, updated []string) string {
	if len(updated) == 0 {
		updated = []string{"(no fields changed)"}
	}
	lines := make([]string, len(updated))
	for i, field := range updated {
		lines[i] = "  - " + field
	}

	return fmt.Sprintf(`**Patient Updated Successfully**

**Patient:** %s
**Updated fields:**
%s

The patient information has been updated in the system.`,
		id, strings.Join(lines, "\n"))
}

func validationErrorMessage(action, body, checklist string) string {
	details := "Validation error"
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		if errs, ok := parsed["errors"]; ok {
			details = fmt.Sprintf("%v", errs)
		} else if msg, ok := parsed["message"].(string); ok {
			details = msg
		}
	} else if body != "" {
		details = body
	}

	return fmt.Sprintf(`**Validation Error**

The patient could not be %s because the provided data is invalid:

**Error details:** %s

Please verify that:
%s`, action, details, checklist)
}

func serverErrorDetail(status int, body string) string {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		if msg, ok := parsed["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if body != "" {
		return fmt.Sprintf("server error: %d - %s", status, body)
	}
	return fmt.Sprintf("server error: %d", status)
}

// isoBirthDate renders a stored birth date in the backend's ISO contract.
// Unknown birth dates fall back to the backend's sentinel date.
func isoBirthDate(birth time.Time) string {
	if birth.IsZero() {
		return "1900-01-01T00:00:00.000Z"
	}
	return birth.Format("2006-01-02T15:04:05.000Z")
}
