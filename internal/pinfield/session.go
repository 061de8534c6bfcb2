package pinfield

// termSession stands in for the platform input connection on terminal hosts.
// A terminal has no out-of-process edit buffer to keep aligned, so the
// editing-state reports serve a different purpose here: outside of the
// initial sync on attach they only ever arrive when the controller rejects a
// candidate and snaps the transport back, which makes the report counter the
// widget's rejection signal.
type termSession struct {
	reports int
	value   string
	cursor  int
	closed  bool
}

func (s *termSession) ReportEditingState(value string, cursor int) {
	s.reports++
	s.value = value
	s.cursor = cursor
}

func (s *termSession) Show() {
	s.closed = false
}

func (s *termSession) Close() {
	s.closed = true
}
