package benchmark

import (
	"caseharvest/lib/restyutil"
)

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput dumps every out of band portal exchange to
// the given output. Wire it before any requester or downloader is
// constructed.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyInstrumentOutput = output
}
