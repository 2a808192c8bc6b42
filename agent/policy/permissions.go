// Copyright 2025 MedBotAssist
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package policy

import (
	"fmt"

	"medbotassist/platform/shared/types"
)

// Permission is a closed enumeration of the permissions the assistant
// understands. Tokens may carry other permission strings; anything outside
// this set is ignored by the validators.
type Permission string

const (
	// UseAgent gates every interaction with the assistant. Without it the
	// caller cannot reach the LLM at all.
	UseAgent Permission = "UseAgent"

	// ViewPatients gates all read access to patient data.
	ViewPatients Permission = "ViewPatients"

	// ManagePatients gates patient creation and modification.
	ManagePatients Permission = "ManagePatients"
)

// displayName is the human form used in denial messages.
func (p Permission) displayName() string {
	switch p {
	case UseAgent:
		return "Use Agent"
	case ViewPatients:
		return "View Patients"
	case ManagePatients:
		return "Manage Patients"
	}
	return string(p)
}

// Validate checks the required permissions in order against the caller's
// held set. The first missing permission wins, so composed checks always
// report UseAgent before a more specific permission. Pure function, no I/O.
func Validate(required []Permission, held []string) (bool, Permission) {
	for _, req := range required {
		if !contains(held, string(req)) {
			return false, req
		}
	}
	return true, ""
}

func contains(held []string, permission string) bool {
	for _, p := range held {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidateAgentAccess checks the UseAgent permission that every interaction
// requires. Returns (true, "") when access is granted, otherwise (false,
// denial text).
func ValidateAgentAccess(caller *types.UserContext) (bool, string) {
	if ok, deniedOn := Validate([]Permission{UseAgent}, caller.Permissions); !ok {
		return false, DenialMessage(caller, deniedOn)
	}
	return true, ""
}

// ValidateViewAccess checks UseAgent then ViewPatients, in that order.
// Used by every patient query tool.
func ValidateViewAccess(caller *types.UserContext) (bool, string) {
	if ok, deniedOn := Validate([]Permission{UseAgent, ViewPatients}, caller.Permissions); !ok {
		return false, DenialMessage(caller, deniedOn)
	}
	return true, ""
}

// ValidateManageAccess checks UseAgent then ManagePatients, in that order.
// Used by patient creation and update tools.
func ValidateManageAccess(caller *types.UserContext) (bool, string) {
	if ok, deniedOn := Validate([]Permission{UseAgent, ManagePatients}, caller.Permissions); !ok {
		return false, DenialMessage(caller, deniedOn)
	}
	return true, ""
}

// DenialMessage builds the access-denied text returned to the user when a
// permission check fails. The text names the caller, their current
// permissions, and the missing permission so office staff can relay it to
// their administrator verbatim. The UseAgent denial is distinct: it blocks
// the assistant entirely rather than a specific capability.
func DenialMessage(caller *types.UserContext, deniedOn Permission) string {
	switch deniedOn {
	case UseAgent:
		return fmt.Sprintf(`**Access Denied to Medical Agent**

User '%s' does not have permission to use the medical agent.

**Current Permissions:** %s
**Required Permission:** UseAgent (required for any interaction with the agent)

Please contact your system administrator to obtain the 'Use Agent' permission.`,
			caller.DisplayName(), caller.PermissionList())

	case ManagePatients:
		return fmt.Sprintf(`**Access Denied**

User '%s' does not have permission to create/modify patients.

**Current Permissions:** %s
**Required Permission:** %s

Please contact your system administrator to obtain the necessary permissions.`,
			caller.DisplayName(), caller.PermissionList(), deniedOn.displayName())

	default:
		return fmt.Sprintf(`**Access Denied**

User '%s' does not have permission to access patient information.

**Current Permissions:** %s
**Required Permission:** %s

Please contact your system administrator to obtain the necessary permissions.`,
			caller.DisplayName(), caller.PermissionList(), deniedOn.displayName())
	}
}
