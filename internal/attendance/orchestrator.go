// Package attendance runs the scan flow of one operator: pick an event,
// scan a card, then either record prayer attendance or open the Qur'an
// verse dialog.
package attendance

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"shollu-partner/internal/events"
	"shollu-partner/internal/qrscan"
	"shollu-partner/internal/shollu"
)

type State string

const (
	StateHome    State = "home"
	StateScanner State = "scanner"
)

var ErrScannerClosed = errors.New("scanner is not open")

// Backend is the part of the Shollu API the orchestrator calls.
type Backend interface {
	SubmitAttendance(ctx context.Context, req shollu.AttendanceRequest) (*shollu.AttendanceResult, error)
	LastVerse(ctx context.Context, token, qrCode string) (*shollu.LastVerse, error)
	SearchSurah(ctx context.Context, token, query string) ([]shollu.Surah, error)
	LogVerse(ctx context.Context, token string, entry shollu.VerseLog) (shollu.Ack, error)
}

// ScanResult is the answer to one scan: an attendance outcome or an opened
// verse dialog.
type ScanResult struct {
	Outcome *Outcome     `json:"outcome,omitempty"`
	Verse   *VerseDialog `json:"verse,omitempty"`
}

// View is a snapshot for rendering.
type View struct {
	State       State        `json:"state"`
	Event       events.Event `json:"event"`
	Verse       *VerseDialog `json:"verse,omitempty"`
	LastOutcome *Outcome     `json:"last_outcome,omitempty"`
}

type Options struct {
	// MachineID is sent as mesin_id with every scan.
	MachineID    string
	DismissAfter time.Duration
	// OnRecorded runs after every successful attendance.
	OnRecorded func(Outcome)
	Now        func() time.Time
}

type Orchestrator struct {
	backend Backend
	capture qrscan.Capture
	catalog *events.Catalog
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	event   events.Event
	scan    *qrscan.ScanSession
	verse   *VerseDialog
	last    *Outcome
	surahs  map[int]shollu.Surah
	pending bool
}

func New(backend Backend, capture qrscan.Capture, catalog *events.Catalog, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		backend: backend,
		capture: capture,
		catalog: catalog,
		opts:    opts,
		logger:  slog.With("component", "attendance", "machine", opts.MachineID),
		state:   StateHome,
		surahs:  make(map[int]shollu.Surah),
	}
}

func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return View{State: o.state, Event: o.event, Verse: o.verse, LastOutcome: o.last}
}

// OpenScanner moves to the scanner for eventID with a fresh scan session.
func (o *Orchestrator) OpenScanner(eventID int) error {
	ev, err := o.catalog.Get(eventID)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.scan != nil {
		o.scan.Close()
	}
	o.event = ev
	o.scan = qrscan.NewSession(o.capture)
	o.state = StateScanner
	o.verse = nil
	return nil
}

// CloseScanner returns home without scanning.
func (o *Orchestrator) CloseScanner() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeScanLocked()
}

func (o *Orchestrator) closeScanLocked() {
	if o.scan != nil {
		o.scan.Close()
		o.scan = nil
	}
	o.state = StateHome
}

// Scan consumes the open scan session. The backend is called once per
// decoded code, whatever happens afterwards.
func (o *Orchestrator) Scan(ctx context.Context, token string, in qrscan.Input) (ScanResult, error) {
	o.mu.Lock()
	if o.state != StateScanner || o.scan == nil || o.pending {
		o.mu.Unlock()
		return ScanResult{}, ErrScannerClosed
	}
	code, err := o.scan.Submit(ctx, in)
	if err != nil {
		o.mu.Unlock()
		return ScanResult{}, err
	}
	ev := o.event
	o.closeScanLocked()
	o.pending = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.pending = false
		o.mu.Unlock()
	}()

	if ev.Quran() {
		return o.openVerse(ctx, token, code)
	}
	return o.record(ctx, ev, code), nil
}

func (o *Orchestrator) record(ctx context.Context, ev events.Event, code string) ScanResult {
	res, err := o.backend.SubmitAttendance(ctx, shollu.AttendanceRequest{
		QRCode:    code,
		MachineID: o.opts.MachineID,
		EventID:   ev.ID,
	})
	out := Classify(res, err).withDismiss(o.opts.DismissAfter)
	out.EventLabel = ev.Label
	if out.QRCode == "" {
		out.QRCode = code
	}
	if err != nil {
		o.logger.Warn("Attendance submit failed", "event", ev.ID, "error", err)
	}

	o.mu.Lock()
	o.last = &out
	o.mu.Unlock()

	if out.Success && o.opts.OnRecorded != nil {
		o.opts.OnRecorded(out)
	}
	return ScanResult{Outcome: &out}
}

func (o *Orchestrator) openVerse(ctx context.Context, token, code string) (ScanResult, error) {
	last, err := o.backend.LastVerse(ctx, token, code)
	if err != nil {
		out := failure(shollu.MessageOf(err)).withDismiss(o.opts.DismissAfter)
		if out.Message == "" {
			out.Message = "Gagal memuat data peserta"
		}
		o.mu.Lock()
		o.last = &out
		o.mu.Unlock()
		return ScanResult{Outcome: &out}, nil
	}
	dialog := &VerseDialog{QRCode: code, Last: *last}
	o.mu.Lock()
	o.verse = dialog
	o.mu.Unlock()
	return ScanResult{Verse: dialog}, nil
}

// SearchSurah runs the type-ahead and remembers the verse counts it saw.
func (o *Orchestrator) SearchSurah(ctx context.Context, token, q string) ([]shollu.Surah, error) {
	list, err := o.backend.SearchSurah(ctx, token, q)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	for _, s := range list {
		o.surahs[s.ID] = s
	}
	o.mu.Unlock()
	return list, nil
}

// SubmitVerse validates and logs the open verse dialog, then closes it.
func (o *Orchestrator) SubmitVerse(ctx context.Context, token string, form VerseForm) error {
	o.mu.Lock()
	dialog := o.verse
	var surah *shollu.Surah
	if form.SurahID > 0 {
		s, known := o.surahs[form.SurahID]
		if !known {
			s = shollu.Surah{ID: form.SurahID}
		}
		surah = &s
	}
	o.mu.Unlock()

	if dialog == nil {
		return ErrNoVerseDialog
	}
	verse, err := ValidateVerse(surah, form.Verse)
	if err != nil {
		return err
	}

	date := form.Date
	if date == "" {
		date = o.opts.Now().Format(time.DateOnly)
	}
	if _, err := o.backend.LogVerse(ctx, token, shollu.VerseLog{
		ParticipantID: int64(dialog.Last.ParticipantID),
		Date:          date,
		SurahID:       surah.ID,
		Verse:         verse,
	}); err != nil {
		return err
	}

	o.mu.Lock()
	if o.verse == dialog {
		o.verse = nil
	}
	o.mu.Unlock()
	o.logger.Info("Verse logged", "participant", dialog.Last.ParticipantID, "surah", surah.ID, "verse", verse)
	return nil
}

func (o *Orchestrator) CancelVerse() {
	o.mu.Lock()
	o.verse = nil
	o.mu.Unlock()
}

// Close releases the scan session.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeScanLocked()
	o.verse = nil
}

// Registry holds one orchestrator per dashboard session.
type Registry struct {
	mu    sync.Mutex
	items map[string]*Orchestrator
	build func(machineID string) *Orchestrator
}

// NewRegistry returns a registry creating orchestrators with build.
func NewRegistry(build func(machineID string) *Orchestrator) *Registry {
	return &Registry{items: make(map[string]*Orchestrator), build: build}
}

// Get returns the orchestrator of sessionID, creating it for operatorID.
func (r *Registry) Get(sessionID string, operatorID int64) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[sessionID]
	if !ok {
		o = r.build(strconv.FormatInt(operatorID, 10))
		r.items[sessionID] = o
	}
	return o
}

// Drop closes and forgets the orchestrator of sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	o, ok := r.items[sessionID]
	delete(r.items, sessionID)
	r.mu.Unlock()
	if ok {
		o.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
