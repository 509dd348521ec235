package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column declarations for the runtime migrator. Timestamps are
// stored as Unix milliseconds so SQLite and Postgres behave the same.

var (
	itemsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "a", Type: field.TypeFloat64},
		{Name: "b", Type: field.TypeFloat64},
		{Name: "c", Type: field.TypeFloat64, Default: 0},
		{Name: "subjects", Type: field.TypeString, Size: 2147483647, Default: "[]"},
		{Name: "skills", Type: field.TypeString, Size: 2147483647, Default: "[]"},
		{Name: "grade", Type: field.TypeInt, Default: 0},
		{Name: "status", Type: field.TypeString},
		{Name: "prompt", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "format", Type: field.TypeString, Default: ""},
		{Name: "choices", Type: field.TypeString, Size: 2147483647, Default: "[]"},
		{Name: "answer", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "rubric", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	itemsTable = &schema.Table{
		Name:       "items",
		Columns:    itemsColumns,
		PrimaryKey: []*schema.Column{itemsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "items_status_b", Columns: []*schema.Column{itemsColumns[7], itemsColumns[2]}},
		},
	}

	exposuresColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "item_id", Type: field.TypeString},
		{Name: "window_start", Type: field.TypeInt64},
		{Name: "served", Type: field.TypeInt64, Default: 0},
	}
	exposuresTable = &schema.Table{
		Name:       "item_exposures",
		Columns:    exposuresColumns,
		PrimaryKey: []*schema.Column{exposuresColumns[0]},
		Indexes: []*schema.Index{
			{Name: "item_exposures_item_window", Unique: true, Columns: []*schema.Column{exposuresColumns[1], exposuresColumns[2]}},
			{Name: "item_exposures_window", Columns: []*schema.Column{exposuresColumns[2]}},
		},
	}

	sessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "examinee_id", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "data", Type: field.TypeBytes},
		{Name: "expires_at", Type: field.TypeInt64, Default: 0},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	sessionsTable = &schema.Table{
		Name:       "test_sessions",
		Columns:    sessionsColumns,
		PrimaryKey: []*schema.Column{sessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "test_sessions_expires_at", Columns: []*schema.Column{sessionsColumns[4]}},
		},
	}

	profilesColumns = []*schema.Column{
		{Name: "examinee_id", Type: field.TypeString},
		{Name: "theta", Type: field.TypeFloat64},
		{Name: "se", Type: field.TypeFloat64},
		{Name: "tests_taken", Type: field.TypeInt, Default: 0},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	profilesTable = &schema.Table{
		Name:       "examinee_profiles",
		Columns:    profilesColumns,
		PrimaryKey: []*schema.Column{profilesColumns[0]},
	}

	resultsColumns = []*schema.Column{
		{Name: "session_id", Type: field.TypeString},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "examinee_id", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "reason", Type: field.TypeString},
		{Name: "theta", Type: field.TypeFloat64},
		{Name: "se", Type: field.TypeFloat64},
		{Name: "ci_low", Type: field.TypeFloat64},
		{Name: "ci_high", Type: field.TypeFloat64},
		{Name: "answered", Type: field.TypeInt},
		{Name: "correct", Type: field.TypeInt},
		{Name: "accuracy", Type: field.TypeFloat64},
		{Name: "relaxed", Type: field.TypeBool, Default: false},
		{Name: "started_at", Type: field.TypeInt64},
		{Name: "ended_at", Type: field.TypeInt64},
	}
	resultsTable = &schema.Table{
		Name:       "session_results",
		Columns:    resultsColumns,
		PrimaryKey: []*schema.Column{resultsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "session_results_examinee", Columns: []*schema.Column{resultsColumns[2], resultsColumns[1]}},
		},
	}

	responsesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "session_id", Type: field.TypeString},
		{Name: "position", Type: field.TypeInt},
		{Name: "item_id", Type: field.TypeString},
		{Name: "a", Type: field.TypeFloat64},
		{Name: "b", Type: field.TypeFloat64},
		{Name: "c", Type: field.TypeFloat64},
		{Name: "subjects", Type: field.TypeString, Size: 2147483647, Default: "[]"},
		{Name: "raw", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "correct", Type: field.TypeBool},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "theta_before", Type: field.TypeFloat64},
		{Name: "theta_after", Type: field.TypeFloat64},
		{Name: "se_before", Type: field.TypeFloat64},
		{Name: "se_after", Type: field.TypeFloat64},
		{Name: "fallback", Type: field.TypeBool, Default: false},
		{Name: "answered_at", Type: field.TypeInt64},
	}
	responsesTable = &schema.Table{
		Name:       "response_events",
		Columns:    responsesColumns,
		PrimaryKey: []*schema.Column{responsesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "response_events_session", Columns: []*schema.Column{responsesColumns[2], responsesColumns[3]}},
			{Name: "response_events_item", Columns: []*schema.Column{responsesColumns[4]}},
		},
	}

	llmEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "timestamp", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	llmEventsTable = &schema.Table{
		Name:       "llm_events",
		Columns:    llmEventsColumns,
		PrimaryKey: []*schema.Column{llmEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llm_events_sequence", Unique: true, Columns: []*schema.Column{llmEventsColumns[1]}},
		},
	}

	sequenceColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt},
		{Name: "next_val", Type: field.TypeInt64, Default: 1},
	}
	sequenceTable = &schema.Table{
		Name:       "global_sequence",
		Columns:    sequenceColumns,
		PrimaryKey: []*schema.Column{sequenceColumns[0]},
	}

	tables = []*schema.Table{
		itemsTable,
		exposuresTable,
		sessionsTable,
		profilesTable,
		resultsTable,
		responsesTable,
		llmEventsTable,
		sequenceTable,
	}
)
