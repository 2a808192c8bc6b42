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

	"medbotassist/platform/shared/types"
)

func getPatientMedicalHistoryTool(repo *Repository) *Tool {
	return &Tool{
		Name: "get_patient_medical_history",
		Description: "Retrieve a patient's complete medical history: appointments with " +
			"their doctors, medical notes, and clinical summaries (diagnosis, treatment, " +
			"recommendations, next steps).",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"identification_number": map[string]interface{}{
					"type":        "string",
					"description": "Patient's identification number",
				},
			},
			"required": []string{"identification_number"},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			id := argString(args, "identification_number")

			rows, err := repo.MedicalHistory(ctx, id)
			if err != nil {
				return fmt.Sprintf("Error accessing medical history: %v", err)
			}
			if len(rows) == 0 {
				return fmt.Sprintf("No patient found with identification number '%s'.", id)
			}

			return formatMedicalHistory(rows, time.Now())
		},
	}
}

func getPatientDiagnosesSummaryTool(repo *Repository) *Tool {
	return &Tool{
		Name: "get_patient_diagnoses_summary",
		Description: "Get a focused summary of a patient's diagnoses and treatments from " +
			"their clinical summaries, newest first.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"identification_number": map[string]interface{}{
					"type":        "string",
					"description": "Patient's identification number",
				},
			},
			"required": []string{"identification_number"},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			id := argString(args, "identification_number")

			rows, err := repo.DiagnosesSummary(ctx, id)
			if err != nil {
				return fmt.Sprintf("Error accessing diagnoses: %v", err)
			}
			if len(rows) == 0 {
				return fmt.Sprintf("No diagnoses found for patient with identification '%s'.", id)
			}

			return formatDiagnoses(rows)
		},
	}
}

func countPatientsByDiagnosisTool(repo *Repository) *Tool {
	return &Tool{
		Name: "count_patients_by_diagnosis",
		Description: "Count how many patients have diagnoses containing a keyword. " +
			"Returns counts only, no patient details.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"diagnosis_keyword": map[string]interface{}{
					"type":        "string",
					"description": "Keyword to search for in diagnoses (partial matches allowed)",
				},
			},
			"required": []string{"diagnosis_keyword"},
		},
		Required: viewPermissions,
		handler: func(ctx context.Context, args map[string]interface{}, caller *types.UserContext) string {
			keyword := argString(args, "diagnosis_keyword")

			counts, err := repo.DiagnosisCounts(ctx, keyword)
			if err != nil {
				return fmt.Sprintf("Error accessing diagnosis count: %v", err)
			}
			if len(counts) == 0 {
				return fmt.Sprintf("No patients found with diagnoses containing '%s'.", keyword)
			}

			return formatDiagnosisCounts(counts, keyword)
		},
	}
}

// appointmentGroup collects one appointment's rows: the LEFT joins fan out
// one row per (note, summary) combination.
type appointmentGroup struct {
	date      string
	timeOfDay string
	status    string
	notes     string
	doctor    string
	specialty string

	noteTexts []string
	noteDates []string

	summaries []HistoryRow
}

func formatMedicalHistory(rows []HistoryRow, today time.Time) string {
	first := rows[0]

	ageText := ""
	if !first.BirthDate.IsZero() {
		ageText = fmt.Sprintf(", %d years old", ageAt(first.BirthDate, today))
	}

	var b strings.Builder
	b.WriteString("**Complete Medical History**\n\n")
	fmt.Fprintf(&b, "**Patient:** %s (ID: %s)%s\n\n", first.PatientName, first.IdentificationNumber, ageText)

	groups := make(map[int]*appointmentGroup)
	var order []int
	for _, row := range rows {
		if row.AppointmentID == 0 {
			continue
		}
		g, ok := groups[row.AppointmentID]
		if !ok {
			g = &appointmentGroup{
				date:      row.AppointmentDate,
				timeOfDay: row.AppointmentTime,
				status:    row.AppointmentStatus,
				notes:     row.AppointmentNotes,
				doctor:    row.DoctorName,
				specialty: row.DoctorSpecialty,
			}
			groups[row.AppointmentID] = g
			order = append(order, row.AppointmentID)
		}
		if row.MedicalNote != "" && !containsString(g.noteTexts, row.MedicalNote) {
			g.noteTexts = append(g.noteTexts, row.MedicalNote)
			g.noteDates = append(g.noteDates, row.NoteDate)
		}
		if row.Diagnosis != "" && !hasDiagnosis(g.summaries, row.Diagnosis) {
			g.summaries = append(g.summaries, row)
		}
	}

	if len(order) == 0 {
		b.WriteString("No medical appointments found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "**Total medical appointments:** %d\n\n", len(order))

	for i, id := range order {
		g := groups[id]
		fmt.Fprintf(&b, "## Appointment #%d\n", i+1)
		fmt.Fprintf(&b, "**Date:** %s\n", g.date)
		if g.timeOfDay != "" {
			fmt.Fprintf(&b, "**Time:** %s\n", g.timeOfDay)
		}
		fmt.Fprintf(&b, "**Status:** %s\n", g.status)

		if g.doctor != "" {
			fmt.Fprintf(&b, "**Doctor:** Dr. %s", g.doctor)
			if g.specialty != "" {
				fmt.Fprintf(&b, " (%s)", g.specialty)
			}
			b.WriteString("\n")
		}

		if g.notes != "" {
			fmt.Fprintf(&b, "**Appointment notes:** %s\n", g.notes)
		}

		if len(g.noteTexts) > 0 {
			b.WriteString("\n### Medical Notes:\n")
			for j, text := range g.noteTexts {
				fmt.Fprintf(&b, "- **%s:** %s\n", g.noteDates[j], text)
			}
		}

		if len(g.summaries) > 0 {
			b.WriteString("\n### Clinical Summary:\n")
			for _, s := range g.summaries {
				fmt.Fprintf(&b, "**Diagnosis:** %s\n", s.Diagnosis)
				if s.Treatment != "" {
					fmt.Fprintf(&b, "**Treatment:** %s\n", s.Treatment)
				}
				if s.Recommendations != "" {
					fmt.Fprintf(&b, "**Recommendations:** %s\n", s.Recommendations)
				}
				if s.NextSteps != "" {
					fmt.Fprintf(&b, "**Next steps:** %s\n", s.NextSteps)
				}
			}
		}

		b.WriteString("\n---\n\n")
	}

	return b.String()
}

func formatDiagnoses(rows []HistoryRow) string {
	first := rows[0]

	var b strings.Builder
	b.WriteString("**Diagnoses Summary**\n\n")
	fmt.Fprintf(&b, "**Patient:** %s (ID: %s)\n\n", first.PatientName, first.IdentificationNumber)
	fmt.Fprintf(&b, "**Total diagnoses found:** %d\n\n", len(rows))

	for i, row := range rows {
		fmt.Fprintf(&b, "## Diagnosis #%d\n", i+1)
		fmt.Fprintf(&b, "**Date:** %s\n", row.AppointmentDate)

		if row.DoctorName != "" {
			fmt.Fprintf(&b, "**Doctor:** Dr. %s", row.DoctorName)
			if row.DoctorSpecialty != "" {
				fmt.Fprintf(&b, " (%s)", row.DoctorSpecialty)
			}
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "**Diagnosis:** %s\n", row.Diagnosis)
		if row.Treatment != "" {
			fmt.Fprintf(&b, "**Treatment:** %s\n", row.Treatment)
		}
		if row.Recommendations != "" {
			fmt.Fprintf(&b, "**Recommendations:** %s\n", row.Recommendations)
		}
		if row.NextSteps != "" {
			fmt.Fprintf(&b, "**Next steps:** %s\n", row.NextSteps)
		}

		b.WriteString("\n---\n\n")
	}

	return b.String()
}

func formatDiagnosisCounts(counts []DiagnosisCount, keyword string) string {
	totalPatients, totalDiagnoses := 0, 0
	for _, c := range counts {
		totalPatients += c.PatientCount
		totalDiagnoses += c.DiagnosisCount
	}

	var b strings.Builder
	b.WriteString("**Patient Count by Diagnosis**\n\n")
	fmt.Fprintf(&b, "**Search:** Diagnoses containing '%s'\n\n", keyword)
	b.WriteString("**General Summary:**\n")
	fmt.Fprintf(&b, "- **Total unique patients:** %d\n", totalPatients)
	fmt.Fprintf(&b, "- **Total diagnoses recorded:** %d\n", totalDiagnoses)
	fmt.Fprintf(&b, "- **Different diagnosis types:** %d\n\n", len(counts))

	b.WriteString("**Breakdown by Diagnosis:**\n\n")
	for i, c := range counts {
		fmt.Fprintf(&b, "## %d. %s\n", i+1, c.Diagnosis)
		fmt.Fprintf(&b, "- **Affected patients:** %d\n", c.PatientCount)
		fmt.Fprintf(&b, "- **Times diagnosed:** %d\n", c.DiagnosisCount)

		percentage := 0.0
		if totalPatients > 0 {
			percentage = float64(c.PatientCount) / float64(totalPatients) * 100
		}
		fmt.Fprintf(&b, "- **Percentage:** %.1f%% of patients with related diagnoses\n\n", percentage)
	}

	b.WriteString("---\n\n")
	b.WriteString("**Note:** Counts show unique patients per diagnosis. A patient may have multiple diagnoses.")

	return b.String()
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func hasDiagnosis(rows []HistoryRow, diagnosis string) bool {
	for _, row := range rows {
		if row.Diagnosis == diagnosis {
			return true
		}
	}
	return false
}
