package provider_test

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/magnusoverli/ember-plus-sub000/econfig"
	"github.com/magnusoverli/ember-plus-sub000/glow"
	"github.com/magnusoverli/ember-plus-sub000/model"
	"github.com/magnusoverli/ember-plus-sub000/provider"
	"github.com/magnusoverli/ember-plus-sub000/s101"
)

func newFixtureStore() *model.Store {
	st := model.NewStore()

	root := &model.Node{Path: model.Path{1}, Identifier: "device", IsOnline: true}
	Expect(st.Put(root)).To(Succeed())

	gain := &model.Parameter{
		Path: model.Path{1, 1}, Identifier: "gain",
		Access: model.AccessReadWrite, Value: model.NewInt(5), IsOnline: true,
	}
	Expect(st.Put(gain)).To(Succeed())
	Expect(st.Link(model.Path{1}, model.Path{1, 1})).To(Succeed())

	mx := model.NewMatrix(model.Path{1, 2}, "xy", "", model.MatrixOneToN, 2, 3, []int{0, 1}, []int{0, 1, 2})
	Expect(st.Put(mx)).To(Succeed())
	Expect(st.Link(model.Path{1}, model.Path{1, 2})).To(Succeed())

	return st
}

func startServer(st *model.Store) (addr string, closeFn func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	srv := provider.NewServer(econfig.Default(), st, "fixture", nil)
	go srv.Serve(ln)
	return ln.Addr().String(), func() { srv.Close() }
}

type wireClient struct {
	nc     net.Conn
	frames chan s101.Event
}

func dial(addr string) *wireClient {
	nc, err := net.Dial("tcp", addr)
	Expect(err).NotTo(HaveOccurred())
	wc := &wireClient{nc: nc, frames: make(chan s101.Event, 32)}
	go wc.readLoop()
	return wc
}

func (wc *wireClient) readLoop() {
	d := s101.NewDeframer()
	buf := make([]byte, 4096)
	for {
		n, err := wc.nc.Read(buf)
		if n > 0 {
			for _, ev := range d.Feed(buf[:n]) {
				wc.frames <- ev
			}
		}
		if err != nil {
			close(wc.frames)
			return
		}
	}
}

func (wc *wireClient) send(root *glow.Root) {
	_, err := wc.nc.Write(s101.EncodeEmber(glow.EncodeRoot(root)))
	Expect(err).NotTo(HaveOccurred())
}

func (wc *wireClient) nextRoot() *glow.Root {
	for {
		select {
		case ev, ok := <-wc.frames:
			if !ok {
				Fail("connection closed before a reply arrived")
			}
			if ev.Kind == s101.EventEmberMessage {
				root, err := glow.DecodeRoot(ev.Ember)
				Expect(err).NotTo(HaveOccurred())
				return root
			}
		case <-time.After(2 * time.Second):
			Fail("timed out waiting for a reply")
		}
	}
}

func getDirectory(path model.Path) *glow.Root {
	if path == nil {
		return &glow.Root{Items: []glow.Item{&glow.Command{Number: glow.CmdGetDirectory}}}
	}
	return &glow.Root{Items: []glow.Item{&glow.QualifiedNode{
		Path: path, Command: &glow.Command{Number: glow.CmdGetDirectory},
	}}}
}

var _ = Describe("directory browsing", func() {
	It("answers a root GetDirectory with the top-level elements", func() {
		addr, closeFn := startServer(newFixtureStore())
		defer closeFn()
		c := dial(addr)
		defer c.nc.Close()

		c.send(getDirectory(nil))
		root := c.nextRoot()
		Expect(root.Items).To(HaveLen(1))
		qn, ok := root.Items[0].(*glow.QualifiedNode)
		Expect(ok).To(BeTrue())
		Expect(*qn.Contents.Identifier).To(Equal("device"))
	})

	It("answers a node GetDirectory with one level of children", func() {
		addr, closeFn := startServer(newFixtureStore())
		defer closeFn()
		c := dial(addr)
		defer c.nc.Close()

		c.send(getDirectory(model.Path{1}))
		root := c.nextRoot()
		qn := root.Items[0].(*glow.QualifiedNode)
		Expect(qn.Children).To(HaveLen(2))
	})
})

var _ = Describe("parameter writes", func() {
	It("applies an editable write and echoes it back to the writer", func() {
		addr, closeFn := startServer(newFixtureStore())
		defer closeFn()
		c := dial(addr)
		defer c.nc.Close()

		v := model.NewInt(9)
		c.send(&glow.Root{Items: []glow.Item{&glow.QualifiedParameter{
			Path: model.Path{1, 1}, Contents: glow.ParameterContents{Value: &v},
		}}})

		root := c.nextRoot()
		qp := root.Items[0].(*glow.QualifiedParameter)
		Expect(qp.Contents.Value.Int).To(Equal(int64(9)))
	})

	It("broadcasts a write to every subscriber of an ancestor path, in arrival order", func() {
		addr, closeFn := startServer(newFixtureStore())
		defer closeFn()
		writer := dial(addr)
		defer writer.nc.Close()
		subscriber := dial(addr)
		defer subscriber.nc.Close()

		subscriber.send(&glow.Root{Items: []glow.Item{&glow.QualifiedNode{
			Path: model.Path{1}, Command: &glow.Command{Number: glow.CmdSubscribe},
		}}})
		time.Sleep(50 * time.Millisecond) // let the subscribe land before the write races it

		first := model.NewInt(11)
		second := model.NewInt(12)
		writer.send(&glow.Root{Items: []glow.Item{&glow.QualifiedParameter{
			Path: model.Path{1, 1}, Contents: glow.ParameterContents{Value: &first},
		}}})
		writer.send(&glow.Root{Items: []glow.Item{&glow.QualifiedParameter{
			Path: model.Path{1, 1}, Contents: glow.ParameterContents{Value: &second},
		}}})

		got1 := subscriber.nextRoot().Items[0].(*glow.QualifiedParameter)
		got2 := subscriber.nextRoot().Items[0].(*glow.QualifiedParameter)
		Expect(got1.Contents.Value.Int).To(Equal(int64(11)))
		Expect(got2.Contents.Value.Int).To(Equal(int64(12)))
	})

	It("silently drops a write to a read-only parameter", func() {
		st := newFixtureStore()
		Expect(st.Put(&model.Parameter{
			Path: model.Path{1, 3}, Identifier: "ro", Access: model.AccessRead,
			Value: model.NewInt(1), IsOnline: true,
		})).To(Succeed())
		Expect(st.Link(model.Path{1}, model.Path{1, 3})).To(Succeed())

		addr, closeFn := startServer(st)
		defer closeFn()
		c := dial(addr)
		defer c.nc.Close()

		v := model.NewInt(99)
		c.send(&glow.Root{Items: []glow.Item{&glow.QualifiedParameter{
			Path: model.Path{1, 3}, Contents: glow.ParameterContents{Value: &v},
		}}})

		// Follow with a GetDirectory, which must answer before any echo would
		// have, proving no write confirmation was ever queued.
		c.send(getDirectory(model.Path{1}))
		root := c.nextRoot()
		Expect(root.Items[0].(*glow.QualifiedNode).Path).To(Equal(model.Path{1}))
	})
})

var _ = Describe("matrix connections", func() {
	It("connects, then disconnects, a single crosspoint on a OneToN matrix", func() {
		addr, closeFn := startServer(newFixtureStore())
		defer closeFn()
		c := dial(addr)
		defer c.nc.Close()

		c.send(&glow.Root{Items: []glow.Item{&glow.QualifiedMatrix{
			Path:        model.Path{1, 2},
			Connections: []glow.ConnectionWire{{Target: 0, Sources: []int{1}, Operation: model.OpConnect}},
		}}})
		root := c.nextRoot()
		qm := root.Items[0].(*glow.QualifiedMatrix)
		Expect(qm.Connections).To(ContainElement(HaveField("Target", 0)))

		c.send(&glow.Root{Items: []glow.Item{&glow.QualifiedMatrix{
			Path:        model.Path{1, 2},
			Connections: []glow.ConnectionWire{{Target: 0, Sources: []int{1}, Operation: model.OpDisconnect}},
		}}})
		root = c.nextRoot()
		qm = root.Items[0].(*glow.QualifiedMatrix)
		for _, cw := range qm.Connections {
			Expect(cw.Target).NotTo(Equal(0))
		}
	})
})

var _ = Describe("function invocation", func() {
	It("answers Invoke with a success result for a known function", func() {
		st := newFixtureStore()
		fn := &model.Function{Path: model.Path{1, 4}, Identifier: "reboot"}
		Expect(st.Put(fn)).To(Succeed())
		Expect(st.Link(model.Path{1}, model.Path{1, 4})).To(Succeed())

		addr, closeFn := startServer(st)
		defer closeFn()
		c := dial(addr)
		defer c.nc.Close()

		c.send(&glow.Root{Items: []glow.Item{&glow.QualifiedFunction{
			Path:    model.Path{1, 4},
			Command: &glow.Command{Number: glow.CmdInvoke, Invocation: &glow.Invocation{ID: 1}},
		}}})
		root := c.nextRoot()
		ir := root.Items[0].(*glow.InvocationResult)
		Expect(ir.InvocationID).To(Equal(int64(1)))
		Expect(ir.Success).To(BeTrue())
	})
})
