// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// jobRequestSchema validates the body of every job-lifecycle POST
// against the shape jobDTO expects, catching a malformed request before
// it ever reaches the engine (the same role kin-openapi plays validating
// the teacher's generated request/response types against its bundled
// SLURM OpenAPI spec, just authored in-process instead of loaded from a
// spec file on disk).
var jobRequestSchema = openapi3.NewObjectSchema().
	WithProperty("job_id", openapi3.NewStringSchema()).
	WithProperty("user_id", openapi3.NewStringSchema()).
	WithProperty("account", openapi3.NewStringSchema()).
	WithProperty("assoc_id", openapi3.NewStringSchema()).
	WithProperty("qos", openapi3.NewStringSchema()).
	WithProperty("partition", openapi3.NewStringSchema()).
	WithProperty("cpus", openapi3.NewInt64Schema().WithMin(0)).
	WithProperty("nodes", openapi3.NewInt64Schema().WithMin(0)).
	WithProperty("min_memory", openapi3.NewInt64Schema()).
	WithProperty("time_limit", openapi3.NewInt64Schema().WithMin(0)).
	WithProperty("admin_set_time", openapi3.NewBoolSchema()).
	WithProperty("admin_set_cpu", openapi3.NewBoolSchema()).
	WithProperty("admin_set_node", openapi3.NewBoolSchema()).
	WithProperty("admin_set_mem", openapi3.NewBoolSchema()).
	WithRequired([]string{"job_id", "user_id"})

// postSelectSchema validates the body of POST .../runnable/post-select.
var postSelectSchema = openapi3.NewObjectSchema().
	WithProperty("node_cnt", openapi3.NewInt64Schema().WithMin(0)).
	WithProperty("cpu_cnt", openapi3.NewInt64Schema().WithMin(0)).
	WithProperty("per_node_min_memory", openapi3.NewInt64Schema()).
	WithRequired([]string{"node_cnt", "cpu_cnt"})

// alterSchema validates the body of POST .../alter.
var alterSchema = openapi3.NewObjectSchema().
	WithProperty("new_time_limit", openapi3.NewInt64Schema().WithMin(1)).
	WithRequired([]string{"new_time_limit"})

// decodeJSON reads r's body as JSON into dst with no schema validation,
// for request bodies whose fields are all engine-supplied telemetry
// rather than operator input (beginDTO, chiefly).
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// decodeAndValidate reads r's body as JSON, validates it against schema,
// and unmarshals it into dst. It reports the first schema violation as
// an error string suitable for a 400 response body.
func decodeAndValidate(r *http.Request, schema *openapi3.Schema, dst interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := schema.VisitJSON(generic); err != nil {
		return fmt.Errorf("request failed schema validation: %w", err)
	}
	return json.Unmarshal(body, dst)
}
