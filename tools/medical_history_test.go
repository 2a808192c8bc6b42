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
	"strings"
	"testing"
	"time"
)

func historyTestRows() []map[string]interface{} {
	// Two rows for appointment 7 (note fan-out) and one for appointment 8.
	return []map[string]interface{}{
		{
			"PatientName":          "María García",
			"IdentificationNumber": "10002",
			"BirthDate":            time.Date(1985, 12, 10, 0, 0, 0, 0, time.UTC),
			"AppointmentId":        int64(7),
			"AppointmentDate":      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			"AppointmentTime":      "09:30",
			"Status":               "Completed",
			"AppointmentNotes":     "Follow-up visit",
			"DoctorName":           "Laura Pérez",
			"DoctorSpecialty":      "Cardiology",
			"NoteDate":             "2025-03-01",
			"MedicalNote":          "Blood pressure stable.",
			"Diagnosis":            "Hypertension",
			"Treatment":            "Lisinopril 10mg",
			"Recommendations":      "Low sodium diet",
			"NextSteps":            "Review in 3 months",
		},
		{
			"PatientName":          "María García",
			"IdentificationNumber": "10002",
			"BirthDate":            time.Date(1985, 12, 10, 0, 0, 0, 0, time.UTC),
			"AppointmentId":        int64(7),
			"AppointmentDate":      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			"AppointmentTime":      "09:30",
			"Status":               "Completed",
			"AppointmentNotes":     "Follow-up visit",
			"DoctorName":           "Laura Pérez",
			"DoctorSpecialty":      "Cardiology",
			"NoteDate":             "2025-03-01",
			"MedicalNote":          "Patient reports no side effects.",
			"Diagnosis":            "Hypertension",
			"Treatment":            "Lisinopril 10mg",
			"Recommendations":      "Low sodium diet",
			"NextSteps":            "Review in 3 months",
		},
		{
			"PatientName":          "María García",
			"IdentificationNumber": "10002",
			"BirthDate":            time.Date(1985, 12, 10, 0, 0, 0, 0, time.UTC),
			"AppointmentId":        int64(8),
			"AppointmentDate":      time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC),
			"AppointmentTime":      "14:00",
			"Status":               "Completed",
			"DoctorName":           "Carlos Ruiz",
			"DoctorSpecialty":      "",
		},
	}
}

func TestGetPatientMedicalHistory(t *testing.T) {
	registry := newTestRegistry(fixedPatientsConnector(historyTestRows()), &stubConnector{})

	result := registry.Execute(context.Background(), "get_patient_medical_history",
		map[string]interface{}{"identification_number": "10002"}, viewerContext())

	for _, expected := range []string{
		"**Complete Medical History**",
		"**Patient:** María García (ID: 10002)",
		"**Total medical appointments:** 2",
		"## Appointment #1",
		"## Appointment #2",
		"**Doctor:** Dr. Laura Pérez (Cardiology)",
		"**Appointment notes:** Follow-up visit",
		"### Medical Notes:",
		"Blood pressure stable.",
		"Patient reports no side effects.",
		"### Clinical Summary:",
		"**Diagnosis:** Hypertension",
		"**Treatment:** Lisinopril 10mg",
		"**Next steps:** Review in 3 months",
	} {
		if !strings.Contains(result, expected) {
			t.Errorf("history missing %q:\n%s", expected, result)
		}
	}

	// Appointment 7 repeats the same diagnosis across its note fan-out rows;
	// the clinical summary must appear once per appointment.
	if strings.Count(result, "**Diagnosis:** Hypertension") != 1 {
		t.Errorf("diagnosis deduplication failed:\n%s", result)
	}

	// Doctor without specialty renders without parentheses.
	if !strings.Contains(result, "**Doctor:** Dr. Carlos Ruiz\n") {
		t.Errorf("specialty-less doctor rendering wrong:\n%s", result)
	}
}

func TestGetPatientMedicalHistory_NoPatient(t *testing.T) {
	registry := newTestRegistry(fixedPatientsConnector(nil), &stubConnector{})

	result := registry.Execute(context.Background(), "get_patient_medical_history",
		map[string]interface{}{"identification_number": "99999"}, viewerContext())

	if result != "No patient found with identification number '99999'." {
		t.Errorf("got %q", result)
	}
}

func TestGetPatientMedicalHistory_NoAppointments(t *testing.T) {
	rows := []map[string]interface{}{
		{
			"PatientName":          "Pedro Rojas",
			"IdentificationNumber": "10003",
			"AppointmentId":        nil,
		},
	}
	registry := newTestRegistry(fixedPatientsConnector(rows), &stubConnector{})

	result := registry.Execute(context.Background(), "get_patient_medical_history",
		map[string]interface{}{"identification_number": "10003"}, viewerContext())

	if !strings.Contains(result, "No medical appointments found.") {
		t.Errorf("got %q", result)
	}
}

func TestGetPatientDiagnosesSummary(t *testing.T) {
	registry := newTestRegistry(fixedPatientsConnector(historyTestRows()), &stubConnector{})

	result := registry.Execute(context.Background(), "get_patient_diagnoses_summary",
		map[string]interface{}{"identification_number": "10002"}, viewerContext())

	for _, expected := range []string{
		"**Diagnoses Summary**",
		"**Patient:** María García (ID: 10002)",
		"**Total diagnoses found:** 2",
		"## Diagnosis #1",
		"**Diagnosis:** Hypertension",
		"**Recommendations:** Low sodium diet",
	} {
		if !strings.Contains(result, expected) {
			t.Errorf("diagnoses summary missing %q:\n%s", expected, result)
		}
	}
}

func TestGetPatientDiagnosesSummary_NoDiagnoses(t *testing.T) {
	rows := []map[string]interface{}{
		{
			"PatientName":          "Pedro Rojas",
			"IdentificationNumber": "10003",
			"AppointmentId":        int64(9),
			"Diagnosis":            nil,
		},
	}
	registry := newTestRegistry(fixedPatientsConnector(rows), &stubConnector{})

	result := registry.Execute(context.Background(), "get_patient_diagnoses_summary",
		map[string]interface{}{"identification_number": "10003"}, viewerContext())

	if result != "No diagnoses found for patient with identification '10003'." {
		t.Errorf("got %q", result)
	}
}

func TestCountPatientsByDiagnosis(t *testing.T) {
	rows := []map[string]interface{}{
		{"Diagnosis": "Hypertension", "PatientCount": int64(3), "DiagnosisCount": int64(5)},
		{"Diagnosis": "Hypertensive crisis", "PatientCount": int64(1), "DiagnosisCount": int64(1)},
	}
	registry := newTestRegistry(fixedPatientsConnector(rows), &stubConnector{})

	result := registry.Execute(context.Background(), "count_patients_by_diagnosis",
		map[string]interface{}{"diagnosis_keyword": "hypertens"}, viewerContext())

	for _, expected := range []string{
		"**Patient Count by Diagnosis**",
		"**Search:** Diagnoses containing 'hypertens'",
		"- **Total unique patients:** 4",
		"- **Total diagnoses recorded:** 6",
		"- **Different diagnosis types:** 2",
		"## 1. Hypertension",
		"- **Affected patients:** 3",
		"- **Percentage:** 75.0% of patients with related diagnoses",
		"## 2. Hypertensive crisis",
		"- **Percentage:** 25.0% of patients with related diagnoses",
	} {
		if !strings.Contains(result, expected) {
			t.Errorf("count summary missing %q:\n%s", expected, result)
		}
	}
}

func TestCountPatientsByDiagnosis_NoMatches(t *testing.T) {
	registry := newTestRegistry(fixedPatientsConnector(nil), &stubConnector{})

	result := registry.Execute(context.Background(), "count_patients_by_diagnosis",
		map[string]interface{}{"diagnosis_keyword": "unicorn"}, viewerContext())

	if result != "No patients found with diagnoses containing 'unicorn'." {
		t.Errorf("got %q", result)
	}
}
