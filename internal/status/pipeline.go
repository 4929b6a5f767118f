package status

import (
	"fmt"
	"strings"
)

// Stage is one step of a card print pipeline. Action is the button label
// that moves a request into this stage.
type Stage struct {
	Code   string
	Label  string
	Action string
}

type Pipeline struct {
	Name   string
	stages []Stage
	// printable lists the stage codes at which a PDF may be generated.
	printable map[string]bool
}

// LivePipeline is the two stage vocabulary the backend uses today.
var LivePipeline = &Pipeline{
	Name: "live",
	stages: []Stage{
		{Code: "request", Label: "Menunggu"},
		{Code: "disetujui", Label: "Disetujui", Action: "Setujui"},
	},
	printable: map[string]bool{"disetujui": true},
}

// FulfilmentPipeline tracks a request through printing and delivery.
var FulfilmentPipeline = &Pipeline{
	Name: "fulfilment",
	stages: []Stage{
		{Code: "pending", Label: "Menunggu"},
		{Code: "approved", Label: "Disetujui", Action: "Setujui"},
		{Code: "printing", Label: "Dicetak", Action: "Mulai Cetak"},
		{Code: "shipped", Label: "Dikirim", Action: "Kirim"},
		{Code: "completed", Label: "Selesai", Action: "Selesai"},
	},
	printable: map[string]bool{"approved": true, "printing": true},
}

// PipelineByName returns the pipeline configured under name.
func PipelineByName(name string) (*Pipeline, error) {
	switch name {
	case LivePipeline.Name:
		return LivePipeline, nil
	case FulfilmentPipeline.Name:
		return FulfilmentPipeline, nil
	}
	return nil, fmt.Errorf("%w: pipeline %q", ErrUnknownStatus, name)
}

func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// CardStatus is a position within a pipeline.
type CardStatus struct {
	pipeline *Pipeline
	index    int
}

// Parse resolves a backend status code within this pipeline only.
func (p *Pipeline) Parse(code string) (CardStatus, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	for i, s := range p.stages {
		if s.Code == code {
			return CardStatus{pipeline: p, index: i}, nil
		}
	}
	return CardStatus{}, fmt.Errorf("%w: %q in %s pipeline", ErrUnknownStatus, code, p.Name)
}

func (s CardStatus) Stage() Stage {
	return s.pipeline.stages[s.index]
}

func (s CardStatus) Code() string  { return s.Stage().Code }
func (s CardStatus) Label() string { return s.Stage().Label }

// Next returns the single stage a request may move to, or false when the
// status is terminal.
func (s CardStatus) Next() (Stage, bool) {
	if s.pipeline == nil || s.index+1 >= len(s.pipeline.stages) {
		return Stage{}, false
	}
	return s.pipeline.stages[s.index+1], true
}

func (s CardStatus) Terminal() bool {
	_, ok := s.Next()
	return !ok
}

func (s CardStatus) CanGeneratePDF() bool {
	return s.pipeline != nil && s.pipeline.printable[s.Code()]
}

// Advance checks that target is the next stage after current.
func (p *Pipeline) Advance(current, target string) (CardStatus, error) {
	from, err := p.Parse(current)
	if err != nil {
		return CardStatus{}, err
	}
	next, ok := from.Next()
	if !ok {
		return CardStatus{}, fmt.Errorf("%w: %q is final", ErrInvalidTransition, current)
	}
	if target != "" && !strings.EqualFold(target, next.Code) {
		return CardStatus{}, fmt.Errorf("%w: %q to %q", ErrInvalidTransition, current, target)
	}
	return CardStatus{pipeline: p, index: from.index + 1}, nil
}
