package cmd

import (
	"fmt"

	"github.com/mchl/mairix/internal/config"
	"github.com/mchl/mairix/internal/mairixdb"
)

// runDump prints every live message's stable index, kind, flags, date,
// thread id, and path/mbox-offset to stdout (spec §6's "-d dump database").
func runDump(cfg *config.Config) error {
	r, err := mairixdb.Open(cfg.Database)
	if err != nil {
		return fatalErr(err)
	}
	defer r.Close()

	for i := 0; i < r.NMsgs(); i++ {
		m := r.Message(i)
		if m.Kind == mairixdb.KindDead {
			continue
		}
		switch m.Kind {
		case mairixdb.KindFile:
			fmt.Printf("%d\tfile\tflags=%02x\tdate=%d\ttid=%d\t%s\n", i, m.Flags, m.Date, m.TID, m.Path)
		case mairixdb.KindMbox:
			mb := r.Mbox(int(m.MboxIndex))
			fmt.Printf("%d\tmbox\tflags=%02x\tdate=%d\ttid=%d\t%s [%d,%d)\n",
				i, m.Flags, m.Date, m.TID, mb.Path, m.Mtime, m.Mtime+m.Size)
		}
	}
	return nil
}
