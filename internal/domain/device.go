package domain

// Device is the last-observed snapshot of the configured smart plug.
type Device struct {
	Alias string
	Addr  string
	IsOn  bool
	Model string
	SWVer string
	HWVer string
}

// Result is the tagged outcome of one gateway operation. Either Error is
// empty and Alias/IsOn describe the post-operation device state, or Error
// carries a human-readable failure message and the other fields are unset.
type Result struct {
	Alias string
	IsOn  bool
	Error string
}

func Success(alias string, isOn bool) Result {
	return Result{Alias: alias, IsOn: isOn}
}

func Failure(msg string) Result {
	return Result{Error: msg}
}

func (r Result) OK() bool {
	return r.Error == ""
}
