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

/*
Package policy provides permission validation for the MedBotAssist agent
and its tools.

# Overview

The policy package implements the permission system that controls access to
the assistant. Permissions are a closed set (UseAgent, ViewPatients,
ManagePatients); the caller's held permissions come from verified JWT claims
and are carried in types.UserContext.

# Evaluation Order

Checks are ordered and the first missing permission wins:

 1. UseAgent - required for any interaction with the assistant
 2. ViewPatients or ManagePatients - required by the specific tool

A caller missing both UseAgent and ViewPatients is always told about
UseAgent first.

# Usage

Each tool validates before doing any work:

	if ok, denial := policy.ValidateViewAccess(caller); !ok {
	    return denial
	}

Denial messages are user-facing text, returned inside a normal chat response
(HTTP 200). They name the user, their current permissions, and the missing
permission, and direct the user to their system administrator.

# Thread Safety

All functions are pure and safe for concurrent use.
*/
package policy
