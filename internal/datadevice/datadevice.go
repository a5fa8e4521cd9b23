// Package datadevice implements the inner wl_data_device_manager clipboard
// bridge: a tagged selection state machine forwarding Local sources to the
// host and manufacturing inner offers for Remote selections, per spec §4.7.
package datadevice

import (
	"golang.org/x/sys/unix"

	"github.com/tesselslate/waywall/internal/backend/proto"
	"github.com/tesselslate/waywall/internal/logger"
	"github.com/tesselslate/waywall/internal/wire"
)

const (
	managerOpCreateDataSource uint16 = 0
	managerOpGetDataDevice    uint16 = 1

	sourceOpOffer   uint16 = 0
	sourceOpDestroy uint16 = 1
	sourceEventSend uint16 = 1
	sourceEventCancelled uint16 = 2

	deviceOpSetSelection uint16 = 1
	deviceOpRelease      uint16 = 2
	deviceEventDataOffer uint16 = 0
	deviceEventSelection uint16 = 5

	offerOpReceive     uint16 = 1
	offerOpDestroy     uint16 = 2
	offerEventOffer    uint16 = 0
)

// selectionKind tags what currently owns the clipboard.
type selectionKind int

const (
	selectionNone selectionKind = iota
	selectionLocal
	selectionRemote
)

// Manager is the inner wl_data_device_manager global, and also the owner of
// the single tagged selection shared by every client's data device.
type Manager struct {
	wire.BaseObject
	client      *wire.Client
	outerMgr    *proto.DataDeviceManager
	outerDevice *proto.DataDevice

	kind         selectionKind
	generation   uint32
	localSource  *Source       // valid when kind == selectionLocal
	remoteOffer  *proto.DataOffer // valid when kind == selectionRemote

	focusedDevice *Device
}

func NewManager(client *wire.Client, id, version uint32, outerMgr *proto.DataDeviceManager, outerDevice *proto.DataDevice) *Manager {
	m := &Manager{
		BaseObject:  wire.NewBaseObject(id, "wl_data_device_manager", version),
		client:      client,
		outerMgr:    outerMgr,
		outerDevice: outerDevice,
	}
	outerDevice.SetSelectionHandler(m.onOuterSelection)
	return m
}

func (m *Manager) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case managerOpCreateDataSource:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		s := &Source{BaseObject: wire.NewBaseObject(id, "wl_data_source", m.Version()), client: m.client, manager: m}
		m.client.Insert(s)
		return nil
	case managerOpGetDataDevice:
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		_, _ = r.Uint32() // seat, unused: exactly one seat
		d := &Device{BaseObject: wire.NewBaseObject(id, "wl_data_device", m.Version()), client: m.client, manager: m}
		m.client.Insert(d)
		m.focusedDevice = d
		return nil
	default:
		return wire.Errorf(m.ID(), 0, "wl_data_device_manager has no request %d", opcode)
	}
}

func (m *Manager) Destroy() {}

// onOuterSelection implements the host-advertises-remote-selection branch
// of spec §4.7: ignored if it is the selection this core itself created.
func (m *Manager) onOuterSelection(offer *proto.DataOffer) {
	if m.kind == selectionLocal {
		// the host is echoing back our own set_selection; nothing to do.
		return
	}
	m.generation++
	m.kind = selectionRemote
	m.remoteOffer = offer
	m.localSource = nil

	if m.focusedDevice == nil || offer == nil {
		return
	}
	gen := m.generation
	innerID := m.client.AllocateServerID()
	inner := &Offer{BaseObject: wire.NewBaseObject(innerID, "wl_data_offer", m.Version()), client: m.client, manager: m, outer: offer, generation: gen}
	m.client.Insert(inner)
	_ = m.client.SendEvent(m.focusedDevice.ID(), deviceEventDataOffer, wire.NewWriter().PutUint32(innerID).Bytes(), nil)

	offer.SetOfferHandler(func(mime string) {
		_ = m.client.SendEvent(innerID, offerEventOffer, wire.NewWriter().PutString(mime).Bytes(), nil)
	})
	_ = m.client.SendEvent(m.focusedDevice.ID(), deviceEventSelection, wire.NewWriter().PutUint32(innerID).Bytes(), nil)
}

// setLocalSelection is called by Device.SetSelection when an inner client
// claims the clipboard with a Local source.
func (m *Manager) setLocalSelection(src *Source, serial uint32) {
	m.generation++
	m.kind = selectionLocal
	m.localSource = src
	m.remoteOffer = nil

	outerSrc, err := m.outerMgr.CreateDataSource()
	if err != nil {
		logger.Errorf("datadevice: create_data_source failed: %v", err)
		return
	}
	for _, mime := range src.mimeTypes {
		_ = outerSrc.Offer(mime)
	}
	outerSrc.SetSendHandler(func(mime string, fd int) {
		_ = src.sendToClient(mime, fd)
		_ = unix.Close(fd)
	})
	outerSrc.SetCancelledHandler(func() {
		if m.kind == selectionLocal && m.localSource == src {
			m.kind = selectionNone
			m.localSource = nil
			_ = src.client.SendEvent(src.ID(), sourceEventCancelled, nil, nil)
		}
	})
	src.outer = outerSrc
	_ = m.outerDevice.SetSelection(outerSrc, serial)
}

// Source is the inner wl_data_source resource.
type Source struct {
	wire.BaseObject
	client    *wire.Client
	manager   *Manager
	mimeTypes []string
	outer     *proto.DataSource
}

func (s *Source) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case sourceOpOffer:
		mime, err := r.String()
		if err != nil {
			return err
		}
		s.mimeTypes = append(s.mimeTypes, mime)
		return nil
	case sourceOpDestroy:
		s.client.Remove(s.ID())
		return nil
	default:
		return wire.Errorf(s.ID(), 0, "wl_data_source has no request %d", opcode)
	}
}

// sendToClient forwards the host's send(mime,fd) request to this inner
// source, per spec §4.7.
func (s *Source) sendToClient(mime string, fd int) error {
	w := wire.NewWriter().PutString(mime)
	return s.client.SendEvent(s.ID(), sourceEventSend, w.Bytes(), []int{fd})
}

func (s *Source) Destroy() {
	s.MarkDestroyed()
	if s.manager.localSource == s {
		s.manager.localSource = nil
	}
	if s.outer != nil {
		_ = s.outer.Destroy()
	}
}

// Device is the inner wl_data_device resource.
type Device struct {
	wire.BaseObject
	client  *wire.Client
	manager *Manager
}

func (d *Device) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case deviceOpSetSelection:
		sourceID, err := r.Uint32()
		if err != nil {
			return err
		}
		serial, err := r.Uint32()
		if err != nil {
			return err
		}
		if sourceID == 0 {
			d.manager.kind = selectionNone
			d.manager.localSource = nil
			_ = d.manager.outerDevice.SetSelection(nil, serial)
			return nil
		}
		obj, ok := d.client.Lookup(sourceID)
		if !ok {
			return wire.Errorf(d.ID(), 0, "set_selection: no such source %d", sourceID)
		}
		src, ok := obj.(*Source)
		if !ok {
			return wire.Errorf(d.ID(), 0, "set_selection: object %d is not a data source", sourceID)
		}
		d.manager.setLocalSelection(src, serial)
		return nil
	case deviceOpRelease:
		d.client.Remove(d.ID())
		if d.manager.focusedDevice == d {
			d.manager.focusedDevice = nil
		}
		return nil
	default:
		return wire.Errorf(d.ID(), 0, "wl_data_device has no request %d", opcode)
	}
}

func (d *Device) Destroy() {}

// Offer is the inner wl_data_offer resource wrapping a Remote selection.
// Its generation is checked on Receive per spec §4.7: a receive against a
// stale generation closes the fd without forwarding.
type Offer struct {
	wire.BaseObject
	client     *wire.Client
	manager    *Manager
	outer      *proto.DataOffer
	generation uint32
}

func (o *Offer) Dispatch(opcode uint16, r *wire.Reader, msg wire.Message) error {
	switch opcode {
	case offerOpReceive:
		mime, err := r.String()
		if err != nil {
			return err
		}
		fd, err := r.FD(msg, new(int))
		if err != nil {
			return err
		}
		if o.generation != o.manager.generation {
			_ = unix.Close(fd)
			return nil
		}
		if err := o.outer.Receive(mime, fd); err != nil {
			_ = unix.Close(fd)
		}
		return nil
	case offerOpDestroy:
		o.client.Remove(o.ID())
		return nil
	default:
		return wire.Errorf(o.ID(), 0, "wl_data_offer has no request %d", opcode)
	}
}

func (o *Offer) Destroy() { o.MarkDestroyed() }
