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
Package base provides the core interfaces and types for MedBotAssist
data-source connectors.

# Overview

The base package defines the Connector interface implemented by every
data-source connector. Two connectors ship with the service:

  - PostgreSQL - the patient store (patients, appointments, diagnoses,
    users/roles/permissions, interaction audit)
  - HTTP API - the external patient backend used by write tools

# Query Operations

Read operations go through Query:

	query := &Query{
	    Statement:  "SELECT * FROM \"Patients\" WHERE \"IdentificationNumber\" = $1",
	    Parameters: map[string]interface{}{"1": "123456789"},
	    Timeout:    5 * time.Second,
	    Limit:      100,
	}

	result, err := connector.Query(ctx, query)
	if err != nil {
	    return err
	}

	for _, row := range result.Rows {
	    fmt.Println(row["FullName"])
	}

Note: Parameters are passed positionally to the database driver. Map keys
are the placeholder numbers ("1", "2", ...); values are bound in numeric
key order.

# Command Operations

Write operations go through Execute:

	cmd := &Command{
	    Action:     "POST",
	    Statement:  "/Patient/create",
	    Parameters: map[string]interface{}{"body": payload, "bearer_token": token},
	    Timeout:    10 * time.Second,
	}

	result, err := connector.Execute(ctx, cmd)

For the HTTP connector, CommandResult.Metadata carries "status_code" and
"body" so callers can map backend statuses to user-facing text. Writes are
single-attempt; the connector never retries.

# Error Handling

All connector errors are wrapped in ConnectorError for consistent handling:

	err := connector.Query(ctx, query)
	var connErr *ConnectorError
	if errors.As(err, &connErr) {
	    log.Printf("Connector: %s, Operation: %s, Message: %s",
	        connErr.ConnectorName, connErr.Operation, connErr.Message)
	}

# Thread Safety

All Connector implementations must be safe for concurrent use.
The interface methods can be called from multiple goroutines simultaneously.
*/
package base
