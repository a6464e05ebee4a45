package media

import (
	"runtime"
	"sync"

	"github.com/asticode/go-astiav"
)

// packetPool recycles astiav.Packet values across the acquisition
// goroutine (source.Next) and the decode loop (Backend.NextFrame): every
// packet read off the format context is handed to the decoder and
// returned here instead of freed, since packets are allocated far more
// often than frames and the demuxer's read rate otherwise dominates
// allocator pressure. A packet that somehow leaks past Put (a goroutine
// panic mid-decode, say) still gets its C memory released via the
// finalizer set at allocation time.
type packetPool struct {
	pool sync.Pool
}

func newPacketPool() *packetPool {
	p := &packetPool{}
	p.pool.New = func() any {
		pkt := astiav.AllocPacket()
		runtime.SetFinalizer(pkt, func(pkt *astiav.Packet) {
			pkt.Free()
		})
		return pkt
	}
	return p
}

func (p *packetPool) Get() *astiav.Packet {
	return p.pool.Get().(*astiav.Packet)
}

func (p *packetPool) Put(pkt *astiav.Packet) {
	pkt.Unref()
	p.pool.Put(pkt)
}

var packets = newPacketPool()
