package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE test_cases (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE test_steps (
				id SERIAL PRIMARY KEY,
				test_case_id VARCHAR(255) NOT NULL REFERENCES test_cases(id) ON DELETE CASCADE,
				order_index INT NOT NULL,
				step_type VARCHAR(50) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				selector VARCHAR(500) NOT NULL DEFAULT '',
				input_data JSONB,
				expected_result TEXT NOT NULL DEFAULT '',
				timeout_seconds INT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_test_steps_case_order ON test_steps(test_case_id, order_index);
		`,
		2: `
			CREATE TABLE execution_results (
				execution_id VARCHAR(255) PRIMARY KEY,
				test_case_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				error_kind VARCHAR(50) NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT '',
				current_step INT NOT NULL DEFAULT 0,
				total_steps INT NOT NULL DEFAULT 0,
				steps JSONB NOT NULL DEFAULT '[]',
				screenshots JSONB NOT NULL DEFAULT '[]',
				ai_analyses JSONB NOT NULL DEFAULT '[]',
				final_ai_analysis JSONB,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_execution_results_test_case ON execution_results(test_case_id, completed_at DESC);
			CREATE INDEX idx_execution_results_status ON execution_results(status);
		`,
	}
}
