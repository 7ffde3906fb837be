package log

type nop struct{}

// Nop returns a Logger that discards everything, the default when no
// Logger is supplied to the pool.
func Nop() Logger { return nop{} }

func (nop) Tracef(string, ...interface{}) {}
func (nop) Debugf(string, ...interface{}) {}
func (nop) Infof(string, ...interface{})  {}
func (nop) Warnf(string, ...interface{})  {}
func (nop) Errorf(string, ...interface{}) {}
func (nop) WithName(string) Logger        { return nop{} }
