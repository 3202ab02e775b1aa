package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				employee_id VARCHAR(255) NOT NULL,
				kind VARCHAR(20) NOT NULL CHECK (kind IN ('ONBOARDING', 'OFFBOARDING')),
				status VARCHAR(20) NOT NULL CHECK (status IN ('PENDING', 'IN_PROGRESS', 'COMPLETED', 'FAILED', 'CANCELLED')),
				is_immediate BOOLEAN NOT NULL DEFAULT FALSE,
				reason TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				workspace JSONB,
				matched_apps JSONB,
				scheduled_for TIMESTAMP WITH TIME ZONE,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				cancelled_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_employee ON workflows(employee_id, kind);
			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_due ON workflows(scheduled_for) WHERE status = 'PENDING';
			CREATE UNIQUE INDEX idx_workflows_one_active ON workflows(employee_id, kind)
				WHERE status IN ('PENDING', 'IN_PROGRESS', 'FAILED');

			CREATE TABLE workflow_tasks (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(20) NOT NULL CHECK (type IN ('AUTOMATED', 'MANUAL')),
				status VARCHAR(20) NOT NULL CHECK (status IN ('PENDING', 'SUCCESS', 'FAILED', 'SKIPPED')),
				handler VARCHAR(100) NOT NULL DEFAULT '',
				params JSONB,
				status_message TEXT NOT NULL DEFAULT '',
				attempts INTEGER NOT NULL DEFAULT 0,
				last_attempt_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_tasks_workflow ON workflow_tasks(workflow_id, position);
		`,
		2: `
			CREATE TABLE applications (
				id VARCHAR(100) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE provisioning_rules (
				id UUID PRIMARY KEY,
				app_id VARCHAR(100) NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
				condition JSONB NOT NULL DEFAULT '{}',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_provisioning_rules_app ON provisioning_rules(app_id) WHERE is_active;
		`,
	}
}
