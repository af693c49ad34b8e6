package detect

import "github.com/quickwhats/quickwhats/recent"

// message is the closed set of events the coordinator reacts to. Each
// variant is handled to completion before the next is read, which is the
// only ordering discipline the detection state needs.
type message interface{ isMessage() }

type producerEvent struct {
	id          string
	numbers     []string
	source      string
	interactive bool // text selection or context menu: toast the page too
}

type consumerOpened struct{}

type consumerQuery struct {
	reply chan QueryResult
}

type countryCodeChanged struct {
	code string
}

type sendConfirmed struct {
	number      string
	countryCode string
	source      string
	text        string // pre-filled chat message
	reply       chan []recent.Entry
}

type reuseFromHistory struct {
	number      string
	countryCode string
	reply       chan []recent.Entry
}

type deleteEntry struct {
	number string
	reply  chan []recent.Entry
}

type clearHistory struct {
	reply chan []recent.Entry
}

type contextMenuSend struct {
	selection string
	source    string
}

func (producerEvent) isMessage()      {}
func (consumerOpened) isMessage()     {}
func (consumerQuery) isMessage()      {}
func (countryCodeChanged) isMessage() {}
func (sendConfirmed) isMessage()      {}
func (reuseFromHistory) isMessage()   {}
func (deleteEntry) isMessage()        {}
func (clearHistory) isMessage()       {}
func (contextMenuSend) isMessage()    {}
