// Package harness runs YAML scenarios against an engine and checks the
// outcome of every step.
//
// # Scenario Format
//
//	name: active_products
//	description: "Active products that cost more than 100 per unit"
//	schema: ""            # CUE file or directory; empty means the insurance domain
//	seed: insurance       # "insurance", a seed YAML path, or empty
//	today: "2024-01-01"   # drives date-dependent computed fields
//	trace_id: trace-active-products
//	setup:
//	  - op: create
//	    type: Product
//	    payload: {Id: "1006", CostPerUnit: 400, Active: true}
//	steps:
//	  - op: query
//	    type: Product
//	    filter: "Active eq true and CostPerUnit gt 100"
//	    orderby: "CostPerUnit desc"
//	    expect:
//	      ids: ["1006", "1005", "1004", "1003", "1001"]
//	assertions:
//	  - type: final_state
//	    record_type: Product
//	    id: "1006"
//	    expect: {CostPerUnit: 400}
//
// # Operations
//
//   - query: filter/orderby/skip/top/count/select/expand over one type
//   - get: one record by id
//   - related: the records reached from type/id through target, with the
//     same options as query
//   - related_one: a single related record, optionally picked by key
//   - create, update, upsert: payload writes; method PUT clears omitted fields
//   - delete: remove by id
//
// # Assertion Types
//
//   - trace_contains: a step with the given op, record type and id ran
//   - trace_order: steps appear in the listed order
//   - trace_count: a step label appears exactly N times
//   - final_state: a record holds the expected field values
//   - record_count: a record type holds exactly N records
//
// # Deterministic Testing
//
// Every step is stamped from a private logical clock, the trace id is fixed
// and "today" comes from the scenario, so the trace of a scenario is the
// same on every run and can be compared against a golden file.
package harness
