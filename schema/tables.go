package schema

import (
	"fmt"
	"strings"

	"dtracker/workflow"
)

const (
	TableTickets       = "FACILITY_CHECK_DETAILS"
	TablePolicies      = "Facility_Dept_Master"
	TableBeds          = "BED_DETAILS"
	TableNotifications = "SLA_Notifications"
	TableUsers         = "LOGIN"
)

// Column is one column and its MySQL definition.
type Column struct {
	Name       string
	Definition string
}

// Table is the expected shape of one table. Constraints are only applied on creation.
type Table struct {
	Name        string
	Columns     []Column
	Constraints []string
}

func (t Table) createSQL() string {
	parts := make([]string, 0, len(t.Columns)+len(t.Constraints))
	for _, c := range t.Columns {
		parts = append(parts, fmt.Sprintf("`%s` %s", c.Name, c.Definition))
	}
	parts = append(parts, t.Constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n    %s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci",
		t.Name, strings.Join(parts, ",\n    "))
}

// Tables returns every table the service reads or writes, step tables and
// bed flags included, in creation order.
func Tables(reg *workflow.Registry) []Table {
	tables := []Table{
		{
			Name: TablePolicies,
			Columns: []Column{
				{"DEPTName", "VARCHAR(50) NOT NULL"},
				{"AssignSLA_Min", "INT NOT NULL DEFAULT 30"},
				{"CompletionSLA_Min", "INT NOT NULL DEFAULT 120"},
				{"HOD_FCM_Token", "VARCHAR(512) NULL"},
			},
			Constraints: []string{"PRIMARY KEY (`DEPTName`)"},
		},
		{
			Name: TableUsers,
			Columns: []Column{
				{"USERID", "VARCHAR(100) NOT NULL"},
				{"USERNAME", "VARCHAR(255) NOT NULL"},
				{"DEPT", "VARCHAR(50) NOT NULL"},
				{"PASSWORD", "VARCHAR(255) NOT NULL"},
				{"FCM_TOKEN", "VARCHAR(512) NULL"},
			},
			Constraints: []string{"PRIMARY KEY (`USERID`)"},
		},
		{
			Name: TableTickets,
			Columns: []Column{
				{"FACILITY_CHECK_ID", "BIGINT NOT NULL AUTO_INCREMENT"},
				{"FACILITY_CKD_ROOMNO", "VARCHAR(50) NOT NULL"},
				{"FACILITY_CKD_DEPT", "VARCHAR(50) NOT NULL"},
				{"FACILITY_TID", "VARCHAR(50) NOT NULL"},
				{"MRNO", "VARCHAR(50) NOT NULL DEFAULT ''"},
				{"USERID", "VARCHAR(100) NULL"},
				{"STATUS", "TINYINT NOT NULL DEFAULT 0 COMMENT '0 unassigned, 1 assigned, 2 closed'"},
				{"TKT_STATUS", "TINYINT NOT NULL DEFAULT 0 COMMENT '0 open, 1 in progress, 2 closed'"},
				{"SLA_OUTCOME", "TINYINT NULL COMMENT '2 assign breach, 3 completion breach, 4 both, 5 within SLA'"},
				{"DISC_RECOM_TIME", "DATETIME NOT NULL"},
				{"ASSIGNED_TIME", "DATETIME NULL"},
				{"COMPLETED_TIME", "DATETIME NULL"},
				{"SLA_NOTIFICATION_STATUS", "TINYINT NOT NULL DEFAULT 0 COMMENT 'last breach type notified'"},
			},
			Constraints: []string{
				"PRIMARY KEY (`FACILITY_CHECK_ID`)",
				"UNIQUE KEY `uq_ticket` (`FACILITY_CKD_ROOMNO`, `FACILITY_CKD_DEPT`, `FACILITY_TID`)",
				"INDEX `idx_ticket_open` (`TKT_STATUS`, `STATUS`)",
			},
		},
		{
			Name: TableNotifications,
			Columns: []Column{
				{"ID", "BIGINT NOT NULL AUTO_INCREMENT"},
				{"TicketID", "BIGINT NOT NULL"},
				{"TicketType", "VARCHAR(50) NOT NULL"},
				{"DeptName", "VARCHAR(50) NOT NULL"},
				{"USERID", "VARCHAR(100) NULL"},
				{"RoomNo", "VARCHAR(50) NOT NULL"},
				{"BreachType", "TINYINT NOT NULL"},
				{"BreachDateTime", "DATETIME NOT NULL"},
				{"Raised_DeptName", "VARCHAR(50) NOT NULL"},
			},
			Constraints: []string{
				"PRIMARY KEY (`ID`)",
				"INDEX `idx_dept_breach_time` (`DeptName`, `BreachDateTime`)",
			},
		},
		bedTable(reg),
	}
	for _, def := range reg.Definitions() {
		tables = append(tables, stepTable(def))
	}
	return tables
}

func episodeColumns() []Column {
	return []Column{
		{"ROOMNO", "VARCHAR(50) NOT NULL"},
		{"MRNO", "VARCHAR(50) NOT NULL"},
		{"FTID", "VARCHAR(50) NOT NULL"},
	}
}

func bedTable(reg *workflow.Registry) Table {
	t := Table{
		Name:        TableBeds,
		Columns:     episodeColumns(),
		Constraints: []string{"UNIQUE KEY `uq_bed_episode` (`ROOMNO`, `MRNO`, `FTID`)"},
	}
	seen := make(map[string]bool)
	add := func(col string) {
		if col == "" || seen[col] {
			return
		}
		seen[col] = true
		t.Columns = append(t.Columns, Column{col, "TINYINT NULL"})
	}
	for _, def := range reg.Definitions() {
		for _, s := range def.Steps {
			if s.Source == workflow.SourceBed {
				add(s.BedColumn)
			}
		}
	}
	for _, def := range reg.Definitions() {
		add(def.BedColumn)
	}
	return t
}

func stepTable(def *workflow.Definition) Table {
	cols := append([]Column{{"ID", "BIGINT NOT NULL AUTO_INCREMENT"}}, episodeColumns()...)
	cols = append(cols, Column{"WORKFLOW_STATE", "INT NOT NULL DEFAULT 0"})
	for _, s := range def.Steps {
		cols = append(cols,
			Column{s.Column, "TINYINT NULL"},
			Column{s.TimeColumn, "DATETIME NULL"},
			Column{s.UserColumn, "VARCHAR(100) NULL"},
		)
	}
	return Table{
		Name:    def.Table,
		Columns: cols,
		Constraints: []string{
			"PRIMARY KEY (`ID`)",
			"UNIQUE KEY `uq_episode` (`ROOMNO`, `MRNO`, `FTID`)",
		},
	}
}
