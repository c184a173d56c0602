package report

// Kind names a recorded event.
type Kind string

const (
	KindGroupStarted  Kind = "group-started"
	KindFileSkipped   Kind = "file-skipped"
	KindKeyTranslated Kind = "key-translated"
	KindFileSaved     Kind = "file-saved"
	KindError         Kind = "error"
)

// Event is one call recorded by a Recorder. Fields not relevant to Kind
// are zero.
type Event struct {
	Kind  Kind
	Group string
	Path  string
	Lang  string
	Key   string
	Value string
	Count int
	Err   error
}

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	Events   []Event
	Total    int
	Advanced int
	Finished bool
}

func (r *Recorder) Start(total int) { r.Total = total }
func (r *Recorder) Advance(n int) { r.Advanced += n }
func (r *Recorder) Finish() { r.Finished = true }

func (r *Recorder) GroupStarted(group, baseLang string, targets []string) {
	r.Events = append(r.Events, Event{Kind: KindGroupStarted, Group: group, Lang: baseLang, Count: len(targets)})
}

func (r *Recorder) FileSkipped(path string, reason error) {
	r.Events = append(r.Events, Event{Kind: KindFileSkipped, Path: path, Err: reason})
}

func (r *Recorder) KeyTranslated(lang, key, value string) {
	r.Events = append(r.Events, Event{Kind: KindKeyTranslated, Lang: lang, Key: key, Value: value})
}

func (r *Recorder) FileSaved(path string, changed int) {
	r.Events = append(r.Events, Event{Kind: KindFileSaved, Path: path, Count: changed})
}

func (r *Recorder) Error(err error) {
	r.Events = append(r.Events, Event{Kind: KindError, Err: err})
}

// Filter returns the recorded events of kind k.
func (r *Recorder) Filter(k Kind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
