// Package procore serves the mocked Procore company used by the integration.
// The data is a deterministic fixture embedded in the binary.
package procore

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed fixture.yaml
var fixtureData []byte

// Date is a calendar day in the fixture (YYYY-MM-DD), interpreted as UTC.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	t, err := time.ParseInLocation(time.DateOnly, node.Value, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", node.Value, err)
	}
	d.Time = t
	return nil
}

// Ptr returns nil for a zero date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

type Company struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type User struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type Project struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Location    string   `yaml:"location"`
	Status      string   `yaml:"status"`
	StartDate   *Date    `yaml:"start_date"`
	EndDate     *Date    `yaml:"end_date"`
	Budget      *float64 `yaml:"budget"`
	Members     []string `yaml:"members"`
}

type Task struct {
	ID           string `yaml:"id"`
	Project      string `yaml:"project"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Status       string `yaml:"status"`
	PlannedStart *Date  `yaml:"planned_start"`
	PlannedEnd   *Date  `yaml:"planned_end"`
	Assignee     string `yaml:"assignee"`
}

// Observation is a Procore safety observation.
type Observation struct {
	ID          string `yaml:"id"`
	Project     string `yaml:"project"`
	Task        string `yaml:"task"`
	User        string `yaml:"user"`
	ReportedBy  string `yaml:"reported_by"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Severity    string `yaml:"severity"`
	OSHACode    string `yaml:"osha_code"`
	Resolved    bool   `yaml:"resolved"`
}

// Fixture is one company's worth of vendor data.
type Fixture struct {
	Company      Company       `yaml:"company"`
	Users        []User        `yaml:"users"`
	Projects     []Project     `yaml:"projects"`
	Tasks        []Task        `yaml:"tasks"`
	Observations []Observation `yaml:"observations"`
}

// Load parses the embedded fixture and checks its cross references.
func Load() (*Fixture, error) {
	return Parse(fixtureData)
}

func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse procore fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		users[u.ID] = true
	}
	projects := make(map[string]bool, len(f.Projects))
	for _, p := range f.Projects {
		projects[p.ID] = true
		for _, m := range p.Members {
			if !users[m] {
				return fmt.Errorf("procore fixture: project %s lists unknown member %s", p.ID, m)
			}
		}
	}
	tasks := make(map[string]bool, len(f.Tasks))
	for _, t := range f.Tasks {
		tasks[t.ID] = true
		if !projects[t.Project] {
			return fmt.Errorf("procore fixture: task %s references unknown project %s", t.ID, t.Project)
		}
		if t.Assignee != "" && !users[t.Assignee] {
			return fmt.Errorf("procore fixture: task %s references unknown assignee %s", t.ID, t.Assignee)
		}
	}
	for _, o := range f.Observations {
		if o.Project != "" && !projects[o.Project] {
			return fmt.Errorf("procore fixture: observation %s references unknown project %s", o.ID, o.Project)
		}
		if o.Task != "" && !tasks[o.Task] {
			return fmt.Errorf("procore fixture: observation %s references unknown task %s", o.ID, o.Task)
		}
		if o.User != "" && !users[o.User] {
			return fmt.Errorf("procore fixture: observation %s references unknown user %s", o.ID, o.User)
		}
		if !users[o.ReportedBy] {
			return fmt.Errorf("procore fixture: observation %s needs a known reporter", o.ID)
		}
	}
	return nil
}
