package verdict

// Accumulator collects messages across several outcome buckets while a
// combinator is still deciding the final outcome. Build keeps only the bucket
// of the outcome it is given.
type Accumulator struct {
	buckets map[Outcome]*Messages
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{buckets: make(map[Outcome]*Messages)}
}

func (a *Accumulator) bucket(o Outcome) *Messages {
	b, ok := a.buckets[o]
	if !ok {
		b = &Messages{}
		a.buckets[o] = b
	}
	return b
}

// AddSpecific appends patient-facing messages to the bucket of o.
func (a *Accumulator) AddSpecific(o Outcome, msgs ...string) *Accumulator {
	b := a.bucket(o)
	b.Specific = append(b.Specific, msgs...)
	return a
}

// AddGeneral appends short labels to the bucket of o.
func (a *Accumulator) AddGeneral(o Outcome, msgs ...string) *Accumulator {
	b := a.bucket(o)
	b.General = append(b.General, msgs...)
	return a
}

// Add merges a verdict's own messages into its outcome bucket.
func (a *Accumulator) Add(v Verdict) *Accumulator {
	a.AddSpecific(v.outcome, v.messages.Specific...)
	return a.AddGeneral(v.outcome, v.messages.General...)
}

// Peek returns a copy of the current contents of a bucket.
func (a *Accumulator) Peek(o Outcome) Messages {
	if b, ok := a.buckets[o]; ok {
		return b.clone()
	}
	return Messages{}
}

// Build freezes the accumulator into a verdict with outcome o. Text gathered
// under any other outcome is discarded.
func (a *Accumulator) Build(o Outcome, displayName string) Verdict {
	return New(o, a.Peek(o)).WithDisplayName(displayName)
}
