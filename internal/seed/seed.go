// Package seed loads tutor and student fixtures from YAML.
package seed

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/service"
)

// Fixture is the document shape accepted by `schedulectl seed`.
//
//	tutors:
//	  - name: Bea
//	    category: math
//	    availability: [1, 3]
//	    availability_blocks: ["15:00-16:30"]
//	students:
//	  - name: Ana
//	    subject: algebra
//	    hours_left: 10
type Fixture struct {
	Tutors   []TutorFixture   `yaml:"tutors"`
	Students []StudentFixture `yaml:"students"`
}

// TutorFixture mirrors service.TutorRequest.
type TutorFixture struct {
	Name               string   `yaml:"name"`
	Category           string   `yaml:"category"`
	Subjects           []string `yaml:"subjects"`
	Availability       []int    `yaml:"availability"`
	AvailabilityBlocks []string `yaml:"availability_blocks"`
}

// StudentFixture mirrors service.StudentRequest.
type StudentFixture struct {
	Name      string `yaml:"name"`
	Subject   string `yaml:"subject"`
	HoursLeft int    `yaml:"hours_left"`
}

type tutorCreator interface {
	Create(ctx context.Context, req service.TutorRequest) (*models.Tutor, error)
}

type studentCreator interface {
	Create(ctx context.Context, req service.StudentRequest) (*models.Student, error)
}

// Result counts what a load inserted.
type Result struct {
	Tutors   int
	Students int
}

// Parse decodes a fixture document, rejecting unknown keys.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fixture Fixture
	if err := dec.Decode(&fixture); err != nil {
		if err == io.EOF {
			return &fixture, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fixture, nil
}

// Load creates every fixture row through the services so the same validation
// and availability canonicalisation apply as for API writes. It stops at the
// first failure.
func Load(ctx context.Context, fixture *Fixture, tutors tutorCreator, students studentCreator) (Result, error) {
	var res Result
	for i, t := range fixture.Tutors {
		_, err := tutors.Create(ctx, service.TutorRequest{
			Name:               t.Name,
			Category:           t.Category,
			Subjects:           t.Subjects,
			Availability:       t.Availability,
			AvailabilityBlocks: t.AvailabilityBlocks,
		})
		if err != nil {
			return res, fmt.Errorf("tutor %d (%s): %w", i+1, t.Name, err)
		}
		res.Tutors++
	}
	for i, s := range fixture.Students {
		_, err := students.Create(ctx, service.StudentRequest{Name: s.Name, Subject: s.Subject, HoursLeft: s.HoursLeft})
		if err != nil {
			return res, fmt.Errorf("student %d (%s): %w", i+1, s.Name, err)
		}
		res.Students++
	}
	return res, nil
}
