package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"logtail/internal/subscription"
)

func initialBatch(lines ...string) subscription.LineEvent {
	if lines == nil {
		lines = []string{}
	}
	return subscription.LineEvent{Kind: subscription.EventInitialBatch, File: "app.log", Lines: lines}
}

func newLine(line string) subscription.LineEvent {
	return subscription.LineEvent{Kind: subscription.EventNewLine, File: "app.log", Line: line}
}

func TestSubscribeStreamsInitialBatchThenCompleteLines(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "a\nb\n")
	sink := &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "app.log", 10, sink)).To(Succeed())
	g.Expect(sink.Events()).To(Equal([]subscription.LineEvent{initialBatch("a", "b")}))

	f.append(t, "app.log", "c\nd")
	g.Eventually(sink.Events).Should(Equal([]subscription.LineEvent{initialBatch("a", "b"), newLine("c")}))
	g.Consistently(sink.Events, 50*time.Millisecond).Should(HaveLen(2))

	f.append(t, "app.log", "\n")
	g.Eventually(sink.NewLines).Should(Equal([]string{"c", "d"}))
}

func TestSubscribeMissingFileReportsNotFound(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	sink := &recordingSink{}

	err := f.registry.Subscribe("v1", "missing.log", 10, sink)
	g.Expect(err).To(HaveOccurred())
	events := sink.Events()
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].Kind).To(Equal(subscription.EventError))
	g.Expect(events[0].Code).To(Equal(subscription.CodeNotFound))
	g.Expect(f.registry.Active()).To(BeEmpty())
}

func TestLineCountDefaultsAndClamps(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t, func(c *subscription.Config) {
		c.DefaultLines = 2
		c.MaxLines = 3
	})
	f.write(t, "app.log", "1\n2\n3\n4\n5\n")

	defaulted := &recordingSink{}
	g.Expect(f.registry.Handle(context.Background(), "v1", subscription.Command{
		Action: subscription.ActionSubscribe, File: "app.log",
	}, defaulted)).To(Succeed())
	g.Expect(defaulted.Events()).To(Equal([]subscription.LineEvent{initialBatch("4", "5")}))

	clamped := &recordingSink{}
	g.Expect(f.registry.Handle(context.Background(), "v2", subscription.Command{
		Action: subscription.ActionSubscribe, File: "app.log", Lines: intPtr(50),
	}, clamped)).To(Succeed())
	g.Expect(clamped.Events()).To(Equal([]subscription.LineEvent{initialBatch("3", "4", "5")}))

	none := &recordingSink{}
	g.Expect(f.registry.Subscribe("v3", "app.log", 0, none)).To(Succeed())
	g.Expect(none.Events()).To(Equal([]subscription.LineEvent{initialBatch()}))
}

func TestViewersOfSameFileAreIndependent(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "start\n")
	first, second := &recordingSink{}, &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "app.log", 10, first)).To(Succeed())
	f.append(t, "app.log", "half")
	g.Expect(f.registry.Subscribe("v2", "app.log", 10, second)).To(Succeed())
	g.Expect(second.Events()).To(Equal([]subscription.LineEvent{initialBatch("start", "half")}))

	// The fragment already went out in the second viewer's batch, so its
	// assembler starts empty at the batch offset.
	f.append(t, "app.log", "-done\n")
	g.Eventually(first.NewLines).Should(Equal([]string{"half-done"}))
	g.Eventually(second.NewLines).Should(Equal([]string{"-done"}))

	g.Expect(f.registry.Unsubscribe("v1", "app.log")).To(Succeed())
	f.append(t, "app.log", "more\n")
	g.Eventually(second.NewLines).Should(Equal([]string{"-done", "more"}))
	g.Consistently(first.NewLines, 50*time.Millisecond).Should(Equal([]string{"half-done"}))
}

func TestResubscribeReplacesPriorInstance(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "a\nb\n")
	sink := &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "app.log", 1, sink)).To(Succeed())
	prev, ok := f.registry.Lookup(subscription.Key{ViewerID: "v1", File: "app.log"})
	g.Expect(ok).To(BeTrue())
	g.Expect(f.registry.Subscribe("v1", "app.log", 2, sink)).To(Succeed())

	g.Expect(prev.State()).To(Equal(subscription.StateStopped))
	g.Expect(prev.Reason()).To(Equal(subscription.StopReplaced))
	g.Expect(f.registry.Active()).To(HaveLen(1))

	f.append(t, "app.log", "c\n")
	g.Eventually(sink.NewLines).Should(Equal([]string{"c"}))
	g.Consistently(sink.NewLines, 50*time.Millisecond).Should(Equal([]string{"c"}))
	g.Expect(sink.Kinds()).To(Equal([]subscription.EventKind{
		subscription.EventInitialBatch, subscription.EventInitialBatch, subscription.EventNewLine,
	}))
}

func TestTruncationRestartsWithFreshBatch(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "old-1\nold-2\n")
	sink := &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "app.log", 10, sink)).To(Succeed())
	f.truncate(t, "app.log")
	g.Eventually(sink.Events).Should(Equal([]subscription.LineEvent{
		initialBatch("old-1", "old-2"),
		initialBatch(),
	}))

	f.append(t, "app.log", "fresh\n")
	g.Eventually(sink.NewLines).Should(Equal([]string{"fresh"}))
	g.Expect(sink.Kinds()).NotTo(ContainElement(subscription.EventError))
	g.Expect(f.registry.Active()).To(Equal([]subscription.Key{{ViewerID: "v1", File: "app.log"}}))
}

func TestUnsubscribeSendsStoppedThenNothing(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "a\n")
	sink := &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "app.log", 10, sink)).To(Succeed())
	g.Expect(f.registry.Handle(context.Background(), "v1", subscription.Command{
		Action: subscription.ActionUnsubscribe, File: "app.log",
	}, sink)).To(Succeed())
	g.Expect(sink.Kinds()).To(Equal([]subscription.EventKind{subscription.EventInitialBatch, subscription.EventStopped}))

	f.append(t, "app.log", "b\n")
	g.Consistently(sink.Events, 50*time.Millisecond).Should(HaveLen(2))
	g.Expect(f.registry.Unsubscribe("v1", "app.log")).To(Succeed())
	g.Expect(f.registry.Active()).To(BeEmpty())
}

func TestStopFileSilentlyStopsOnlyThatFile(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "a\n")
	f.write(t, "other.log", "x\n")
	v1, v2, v3 := &recordingSink{}, &recordingSink{}, &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "app.log", 10, v1)).To(Succeed())
	g.Expect(f.registry.Subscribe("v2", "app.log", 10, v2)).To(Succeed())
	g.Expect(f.registry.Subscribe("v1", "other.log", 10, v3)).To(Succeed())

	g.Expect(f.registry.StopFile("app.log")).To(Equal(2))
	g.Expect(f.registry.Active()).To(Equal([]subscription.Key{{ViewerID: "v1", File: "other.log"}}))

	f.append(t, "app.log", "b\n")
	f.append(t, "other.log", "y\n")
	g.Eventually(v3.NewLines).Should(Equal([]string{"y"}))
	g.Expect(v1.Kinds()).To(Equal([]subscription.EventKind{subscription.EventInitialBatch}))
	g.Expect(v2.Kinds()).To(Equal([]subscription.EventKind{subscription.EventInitialBatch}))
}

func TestDisconnectStopsEveryViewerSubscription(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "a.log", "1\n")
	f.write(t, "b.log", "2\n")
	mine, theirs := &recordingSink{}, &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "a.log", 10, mine)).To(Succeed())
	g.Expect(f.registry.Subscribe("v1", "b.log", 10, mine)).To(Succeed())
	g.Expect(f.registry.Subscribe("v2", "a.log", 10, theirs)).To(Succeed())

	g.Expect(f.registry.Disconnect("v1")).To(Equal(2))
	g.Expect(f.registry.Active()).To(Equal([]subscription.Key{{ViewerID: "v2", File: "a.log"}}))
	f.append(t, "a.log", "next\n")
	g.Eventually(theirs.NewLines).Should(Equal([]string{"next"}))
	g.Expect(mine.Kinds()).NotTo(ContainElement(subscription.EventStopped))
}

func TestSinkFailureActsAsDisconnect(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "a\n")
	sink := &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "app.log", 10, sink)).To(Succeed())
	sub, _ := f.registry.Lookup(subscription.Key{ViewerID: "v1", File: "app.log"})
	sink.broken.Store(true)
	f.append(t, "app.log", "b\n")

	g.Eventually(sub.Done()).Should(BeClosed())
	g.Expect(sub.Reason()).To(Equal(subscription.StopDisconnected))
	g.Eventually(f.registry.Active).Should(BeEmpty())
}

func TestDeletedFileWhileActiveReportsError(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "a\n")
	sink := &recordingSink{}

	g.Expect(f.registry.Subscribe("v1", "app.log", 10, sink)).To(Succeed())
	g.Expect(f.mem.Remove(root + "/app.log")).To(Succeed())

	g.Eventually(sink.Kinds).Should(Equal([]subscription.EventKind{subscription.EventInitialBatch, subscription.EventError}))
	g.Expect(sink.Events()[1].Code).To(Equal(subscription.CodeNotFound))
	g.Eventually(f.registry.Active).Should(BeEmpty())
}

func TestHandleRejectsInvalidCommand(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	sink := &recordingSink{}

	err := f.registry.Handle(context.Background(), "v1", subscription.Command{Action: "tail", File: "app.log"}, sink)
	g.Expect(errors.Is(err, subscription.ErrInvalidCommand)).To(BeTrue())
	g.Expect(sink.Events()).To(HaveLen(1))
	g.Expect(sink.Events()[0].Code).To(Equal(subscription.CodeInvalidCommand))
	g.Expect(f.registry.Active()).To(BeEmpty())
}

func TestClosedRegistryRejectsSubscribe(t *testing.T) {
	g := NewWithT(t)
	f := newFixture(t)
	f.write(t, "app.log", "a\n")
	sink := &recordingSink{}
	g.Expect(f.registry.Subscribe("v1", "app.log", 10, sink)).To(Succeed())

	f.registry.Close()
	g.Expect(f.registry.Active()).To(BeEmpty())
	g.Expect(f.registry.Subscribe("v1", "app.log", 10, sink)).To(MatchError(subscription.ErrRegistryClosed))
}
