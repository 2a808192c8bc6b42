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

package interactions

import "strings"

// Interaction type tags.
const (
	TypeAppointment     = "Appointment"
	TypeSummary         = "Summary"
	TypeMedicalHistory  = "MedicalHistory"
	TypeDiagnosis       = "Diagnosis"
	TypePatientSearch   = "PatientSearch"
	TypePatientCreation = "PatientCreation"
	TypePatientUpdate   = "PatientUpdate"
	TypeGeneral         = "General"
)

// classificationRules are checked in order; the first keyword hit wins.
// Keywords cover English and Spanish since staff write in both.
var classificationRules = []struct {
	tag      string
	keywords []string
}{
	{TypeAppointment, []string{"appointment", "cita", "consulta", "agenda"}},
	{TypeSummary, []string{"summary", "resumen", "estadistic", "count", "total"}},
	{TypeMedicalHistory, []string{"history", "historial", "medical", "médico"}},
	{TypeDiagnosis, []string{"diagnosis", "diagnóstico", "disease", "enfermedad"}},
	{TypePatientSearch, []string{"search", "buscar", "find", "encontrar", "patient", "paciente"}},
	{TypePatientCreation, []string{"create", "crear", "new", "nuevo"}},
	{TypePatientUpdate, []string{"update", "actualizar", "modify", "modificar"}},
}

// ClassifyInteraction tags an exchange by keywords in the user message.
func ClassifyInteraction(userMessage, botResponse string) string {
	message := strings.ToLower(userMessage)
	for _, rule := range classificationRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(message, keyword) {
				return rule.tag
			}
		}
	}
	return TypeGeneral
}
