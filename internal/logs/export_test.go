package logs

// Observed exposes the detector's last recorded file state to tests.
func (d *Detector) Observed() WatchedFile { return d.observed() }

// Pending exposes the buffered fragment length to tests.
func (a *Assembler) Pending() int { return len(a.pending) }
