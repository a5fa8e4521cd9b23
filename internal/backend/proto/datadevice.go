package proto

import (
	"github.com/bnema/wlturbo/wl"
)

// DataDeviceManager wraps wl_data_device_manager: the clipboard bridge's
// entry point on the outer connection.
type DataDeviceManager struct{ wl.BaseProxy }

func NewDataDeviceManager(ctx *wl.Context) *DataDeviceManager {
	m := &DataDeviceManager{}
	m.SetContext(ctx)
	return m
}

func (m *DataDeviceManager) CreateDataSource() (*DataSource, error) {
	const opcode = 0
	s := &DataSource{}
	s.SetContext(m.Context())
	s.SetID(m.Context().AllocateID())
	m.Context().Register(s)
	if err := m.Context().SendRequest(m, opcode, s); err != nil {
		m.Context().Unregister(s)
		return nil, err
	}
	return s, nil
}

func (m *DataDeviceManager) GetDataDevice(seat *Seat) (*DataDevice, error) {
	const opcode = 1
	d := &DataDevice{}
	d.SetContext(m.Context())
	d.SetID(m.Context().AllocateID())
	m.Context().Register(d)
	if err := m.Context().SendRequest(m, opcode, d, seat); err != nil {
		m.Context().Unregister(d)
		return nil, err
	}
	return d, nil
}

func (m *DataDeviceManager) Dispatch(*wl.Event) {}

// DataSource wraps wl_data_source: the local (inner-client) clipboard
// contents offered to the host.
type DataSource struct {
	wl.BaseProxy

	sendHandler      func(mimeType string, fd int)
	cancelledHandler func()
}

func (s *DataSource) SetSendHandler(f func(mimeType string, fd int)) { s.sendHandler = f }
func (s *DataSource) SetCancelledHandler(f func())                   { s.cancelledHandler = f }

func (s *DataSource) Offer(mimeType string) error {
	const opcode = 0
	return s.Context().SendRequest(s, opcode, mimeType)
}

func (s *DataSource) Destroy() error {
	const opcode = 1
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

func (s *DataSource) Dispatch(event *wl.Event) {
	data := event.Data()
	r := newArgReader(data)
	switch event.Opcode {
	case 1: // send(mime_type, fd)
		mime, _ := r.string()
		fd := -1
		if fds := event.FDs(); len(fds) > 0 {
			fd = fds[0]
		}
		if s.sendHandler != nil {
			s.sendHandler(mime, fd)
		}
	case 2: // cancelled
		if s.cancelledHandler != nil {
			s.cancelledHandler()
		}
	}
}

// DataDevice wraps wl_data_device: the per-seat clipboard/DnD channel.
// waywall only uses its selection (clipboard) facilities, not drag-and-drop.
type DataDevice struct {
	wl.BaseProxy

	dataOfferHandler func(offer *DataOffer)
	selectionHandler func(offer *DataOffer)
}

func (d *DataDevice) SetDataOfferHandler(f func(offer *DataOffer)) { d.dataOfferHandler = f }
func (d *DataDevice) SetSelectionHandler(f func(offer *DataOffer)) { d.selectionHandler = f }

func (d *DataDevice) SetSelection(source *DataSource, serial uint32) error {
	const opcode = 1
	var s interface{}
	if source != nil {
		s = source
	}
	return d.Context().SendRequest(d, opcode, s, serial)
}

func (d *DataDevice) Release() error {
	const opcode = 2
	err := d.Context().SendRequest(d, opcode)
	d.Context().Unregister(d)
	return err
}

func (d *DataDevice) Dispatch(event *wl.Event) {
	r := newArgReader(event.Data())
	switch event.Opcode {
	case 0: // data_offer(id) - the host allocates a fresh object id for the
		// offer; this binding registers the local proxy for it immediately
		// so later events (selection, offer) can resolve it by id.
		id, ok := r.uint32()
		if !ok {
			return
		}
		offer := &DataOffer{}
		offer.SetContext(d.Context())
		offer.SetID(id)
		d.Context().Register(offer)
		if d.dataOfferHandler != nil {
			d.dataOfferHandler(offer)
		}
	case 5: // selection(id) - id references an offer already advertised via
		// data_offer, or 0 to clear the clipboard.
		id, _ := r.uint32()
		if id == 0 {
			if d.selectionHandler != nil {
				d.selectionHandler(nil)
			}
			return
		}
		if obj, ok := d.Context().Lookup(id); ok {
			if offer, ok := obj.(*DataOffer); ok && d.selectionHandler != nil {
				d.selectionHandler(offer)
			}
		}
	}
}

// DataOffer wraps wl_data_offer: one clipboard mime-type/fd exchange.
type DataOffer struct {
	wl.BaseProxy

	offerHandler func(mimeType string)
}

func (o *DataOffer) SetOfferHandler(f func(mimeType string)) { o.offerHandler = f }

func (o *DataOffer) Receive(mimeType string, fd int) error {
	const opcode = 1
	return o.Context().SendRequestWithFDs(o, opcode, []int{fd}, mimeType, fd)
}

func (o *DataOffer) Destroy() error {
	const opcode = 2
	err := o.Context().SendRequest(o, opcode)
	o.Context().Unregister(o)
	return err
}

func (o *DataOffer) Dispatch(event *wl.Event) {
	if event.Opcode != 0 {
		return
	}
	r := newArgReader(event.Data())
	mime, _ := r.string()
	if o.offerHandler != nil {
		o.offerHandler(mime)
	}
}
