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
	"time"

	"medbotassist/platform/connectors/base"
)

// Patient is one row of the Patients table. A zero BirthDate means the
// birth date is unknown.
type Patient struct {
	PatientID            int
	FullName             string
	IdentificationNumber string
	BirthDate            time.Time
	Phone                string
	Email                string
}

// Describe renders the patient as a single natural-language sentence for
// LLM consumption. Missing fields are omitted rather than rendered empty.
func (p *Patient) Describe(today time.Time) string {
	name := p.FullName
	if name == "" {
		name = "Name not available"
	}
	desc := "Patient " + name

	if p.IdentificationNumber != "" {
		desc += " with identification number " + p.IdentificationNumber
	}
	if !p.BirthDate.IsZero() {
		desc += fmt.Sprintf(", %d years old", ageAt(p.BirthDate, today))
		desc += ", born on " + p.BirthDate.Format("January 02, 2006")
	}
	if p.Phone != "" {
		desc += ", contact phone " + p.Phone
	}
	if p.Email != "" {
		desc += ", email address " + p.Email
	}

	return desc + "."
}

// searchText returns the normalized blob of all patient fields used by the
// free-text search tools.
func (p *Patient) searchText() string {
	birth := ""
	if !p.BirthDate.IsZero() {
		birth = p.BirthDate.Format("2006-01-02")
	}
	return NormalizeForSearch(fmt.Sprintf("%s %s %s %s %s",
		p.FullName, p.IdentificationNumber, birth, p.Phone, p.Email))
}

// ageAt computes completed years between birth and on, decrementing when the
// birthday has not yet occurred in the current year.
func ageAt(birth, on time.Time) int {
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	return age
}

// HistoryRow is one row of the medical-history join: a patient's appointment
// with its doctor, medical note, and AI-generated clinical summary. LEFT
// joins mean everything past the patient columns may be empty.
type HistoryRow struct {
	PatientName          string
	IdentificationNumber string
	BirthDate            time.Time

	AppointmentID     int
	AppointmentDate   string
	AppointmentTime   string
	AppointmentStatus string
	AppointmentNotes  string

	DoctorName      string
	DoctorSpecialty string

	NoteDate    string
	MedicalNote string

	Diagnosis       string
	Treatment       string
	Recommendations string
	NextSteps       string
	SummaryDate     string
}

// DiagnosisCount aggregates one diagnosis across patients.
type DiagnosisCount struct {
	Diagnosis      string
	PatientCount   int
	DiagnosisCount int
}

const patientColumns = `"PatientId", "FullName", "IdentificationNumber", "BirthDate", "Phone", "Email"`

const allPatientsSQL = `SELECT ` + patientColumns + ` FROM "Patients" ORDER BY "FullName"`

const patientByIdentificationSQL = `SELECT ` + patientColumns + ` FROM "Patients" WHERE "IdentificationNumber" = $1`

const countPatientsSQL = `SELECT COUNT(*) AS "Total" FROM "Patients"`

const userPermissionsSQL = `
SELECT p."PermissionName"
FROM "Users" u
JOIN "UserRoles" ur ON u."UserId" = ur."UserId"
JOIN "RolePermissions" rp ON rp."RoleId" = ur."RoleId"
JOIN "Permissions" p ON rp."PermissionId" = p."PermissionId"
WHERE u."UserName" = $1`

const medicalHistorySQL = `
SELECT
    p."FullName" AS "PatientName",
    p."IdentificationNumber",
    p."BirthDate",
    a."AppointmentId",
    a."AppointmentDate",
    a."AppointmentTime",
    a."Status",
    a."Notes" AS "AppointmentNotes",
    u."FullName" AS "DoctorName",
    s."SpecialtyName" AS "DoctorSpecialty",
    mn."CreationDate" AS "NoteDate",
    mn."FreeText" AS "MedicalNote",
    cs."Diagnosis",
    cs."Treatment",
    cs."Recommendations",
    cs."NextSteps",
    cs."GeneratedDate" AS "SummaryDate"
FROM "Patients" p
LEFT JOIN "Appointments" a ON p."PatientId" = a."PatientId"
LEFT JOIN "Doctors" d ON a."DoctorId" = d."DoctorId"
LEFT JOIN "Users" u ON d."UserId" = u."UserId"
LEFT JOIN "Specialties" s ON d."SpecialtyId" = s."SpecialtyId"
LEFT JOIN "MedicalNotes" mn ON a."AppointmentId" = mn."AppointmentId"
LEFT JOIN "ClinicalSummaries" cs ON mn."NoteId" = cs."NoteId"
WHERE p."IdentificationNumber" = $1
ORDER BY a."AppointmentDate" DESC, a."AppointmentTime" DESC`

const diagnosisCountsSQL = `
SELECT
    COUNT(DISTINCT p."PatientId") AS "PatientCount",
    COUNT(cs."Diagnosis") AS "DiagnosisCount",
    cs."Diagnosis"
FROM "Patients" p
LEFT JOIN "Appointments" a ON p."PatientId" = a."PatientId"
LEFT JOIN "MedicalNotes" mn ON a."AppointmentId" = mn."AppointmentId"
LEFT JOIN "ClinicalSummaries" cs ON mn."NoteId" = cs."NoteId"
WHERE cs."Diagnosis" IS NOT NULL
  AND LOWER(cs."Diagnosis") LIKE LOWER($1)
GROUP BY cs."Diagnosis"
ORDER BY "PatientCount" DESC, cs."Diagnosis"`

// Repository wraps the patient-store connector with typed queries. All SQL
// lives here; tools only see Go types.
type Repository struct {
	db base.Connector
}

// NewRepository creates a repository over the PostgreSQL patient store.
func NewRepository(db base.Connector) *Repository {
	return &Repository{db: db}
}

// AllPatients returns every patient ordered by full name.
func (r *Repository) AllPatients(ctx context.Context) ([]Patient, error) {
	result, err := r.db.Query(ctx, &base.Query{Statement: allPatientsSQL})
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}

	patients := make([]Patient, 0, len(result.Rows))
	for _, row := range result.Rows {
		patients = append(patients, patientFromRow(row))
	}
	return patients, nil
}

// PatientByIdentification returns the patient with the exact identification
// number, or (nil, nil) when no such patient exists.
func (r *Repository) PatientByIdentification(ctx context.Context, identificationNumber string) (*Patient, error) {
	result, err := r.db.Query(ctx, &base.Query{
		Statement:  patientByIdentificationSQL,
		Parameters: map[string]interface{}{"1": identificationNumber},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up patient %q: %w", identificationNumber, err)
	}
	if len(result.Rows) == 0 {
		return nil, nil
	}

	p := patientFromRow(result.Rows[0])
	return &p, nil
}

// CountPatients returns the total number of patients. Used by the health
// endpoint as a cheap end-to-end database probe.
func (r *Repository) CountPatients(ctx context.Context) (int, error) {
	result, err := r.db.Query(ctx, &base.Query{Statement: countPatientsSQL})
	if err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	if len(result.Rows) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	return rowInt(result.Rows[0], "Total"), nil
}

// UserPermissions loads a user's permission names through the role tables.
// Used by the auth middleware when a token carries no permissions claim.
func (r *Repository) UserPermissions(ctx context.Context, username string) ([]string, error) {
	result, err := r.db.Query(ctx, &base.Query{
		Statement:  userPermissionsSQL,
		Parameters: map[string]interface{}{"1": username},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions for %q: %w", username, err)
	}

	permissions := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if name := rowString(row, "PermissionName"); name != "" {
			permissions = append(permissions, name)
		}
	}
	return permissions, nil
}

// MedicalHistory returns the full appointment/note/summary join for one
// patient, newest appointment first. Empty slice means no such patient.
func (r *Repository) MedicalHistory(ctx context.Context, identificationNumber string) ([]HistoryRow, error) {
	result, err := r.db.Query(ctx, &base.Query{
		Statement:  medicalHistorySQL,
		Parameters: map[string]interface{}{"1": identificationNumber},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load medical history for %q: %w", identificationNumber, err)
	}

	rows := make([]HistoryRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, historyFromRow(row))
	}
	return rows, nil
}

// DiagnosesSummary returns the history rows that carry a diagnosis.
func (r *Repository) DiagnosesSummary(ctx context.Context, identificationNumber string) ([]HistoryRow, error) {
	rows, err := r.MedicalHistory(ctx, identificationNumber)
	if err != nil {
		return nil, err
	}

	diagnosed := make([]HistoryRow, 0, len(rows))
	for _, row := range rows {
		if row.Diagnosis != "" {
			diagnosed = append(diagnosed, row)
		}
	}
	return diagnosed, nil
}

// DiagnosisCounts aggregates patients per diagnosis matching the keyword
// (case-insensitive substring), most affected diagnosis first.
func (r *Repository) DiagnosisCounts(ctx context.Context, keyword string) ([]DiagnosisCount, error) {
	result, err := r.db.Query(ctx, &base.Query{
		Statement:  diagnosisCountsSQL,
		Parameters: map[string]interface{}{"1": "%" + keyword + "%"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count diagnoses for %q: %w", keyword, err)
	}

	counts := make([]DiagnosisCount, 0, len(result.Rows))
	for _, row := range result.Rows {
		counts = append(counts, DiagnosisCount{
			Diagnosis:      rowString(row, "Diagnosis"),
			PatientCount:   rowInt(row, "PatientCount"),
			DiagnosisCount: rowInt(row, "DiagnosisCount"),
		})
	}
	return counts, nil
}

func patientFromRow(row map[string]interface{}) Patient {
	return Patient{
		PatientID:            rowInt(row, "PatientId"),
		FullName:             rowString(row, "FullName"),
		IdentificationNumber: rowString(row, "IdentificationNumber"),
		BirthDate:            rowTime(row, "BirthDate"),
		Phone:                rowString(row, "Phone"),
		Email:                rowString(row, "Email"),
	}
}

func historyFromRow(row map[string]interface{}) HistoryRow {
	return HistoryRow{
		PatientName:          rowString(row, "PatientName"),
		IdentificationNumber: rowString(row, "IdentificationNumber"),
		BirthDate:            rowTime(row, "BirthDate"),
		AppointmentID:        rowInt(row, "AppointmentId"),
		AppointmentDate:      rowString(row, "AppointmentDate"),
		AppointmentTime:      rowString(row, "AppointmentTime"),
		AppointmentStatus:    rowString(row, "Status"),
		AppointmentNotes:     rowString(row, "AppointmentNotes"),
		DoctorName:           rowString(row, "DoctorName"),
		DoctorSpecialty:      rowString(row, "DoctorSpecialty"),
		NoteDate:             rowString(row, "NoteDate"),
		MedicalNote:          rowString(row, "MedicalNote"),
		Diagnosis:            rowString(row, "Diagnosis"),
		Treatment:            rowString(row, "Treatment"),
		Recommendations:      rowString(row, "Recommendations"),
		NextSteps:            rowString(row, "NextSteps"),
		SummaryDate:          rowString(row, "SummaryDate"),
	}
}

// rowString renders a result column as text. Timestamps at midnight render
// as plain dates, matching how appointment dates read in chat responses.
func rowString(row map[string]interface{}, column string) string {
	v, ok := row[column]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func rowInt(row map[string]interface{}, column string) int {
	v, ok := row[column]
	if !ok || v == nil {
		return 0
	}
	switch val := v.(type) {
	case int64:
		return int(val)
	case int:
		return val
	case float64:
		return int(val)
	}
	return 0
}

func rowTime(row map[string]interface{}, column string) time.Time {
	v, ok := row[column]
	if !ok || v == nil {
		return time.Time{}
	}
	if t, ok := v.(time.Time); ok {
		return t
	}
	if s, ok := v.(string); ok {
		for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
