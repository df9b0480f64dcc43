//go:build darwin

package capture

/*
#cgo darwin CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo darwin LDFLAGS: -framework CoreGraphics -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>

static Boolean axCheckTrusted(void) {
        const void *keys[] = { kAXTrustedCheckOptionPrompt };
        const void *values[] = { kCFBooleanTrue };
        CFDictionaryRef options = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
                                                     &kCFTypeDictionaryKeyCallBacks,
                                                     &kCFTypeDictionaryValueCallBacks);
        Boolean trusted = AXIsProcessTrustedWithOptions(options);
        CFRelease(options);
        return trusted;
}

extern CGEventRef goHandleKeyEvent(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *userInfo);

static CFRunLoopSourceRef startKeyTap(uintptr_t handle, CGEventMask mask, CFMachPortRef *tapOut) {
        CFMachPortRef tap = CGEventTapCreate(kCGSessionEventTap,
                                             kCGHeadInsertEventTap,
                                             kCGEventTapOptionDefault,
                                             mask,
                                             goHandleKeyEvent,
                                             (void *)handle);
        if (tap == NULL) {
                return NULL;
        }
        CGEventTapEnable(tap, true);
        CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
        *tapOut = tap;
        return source;
}

static void enableTap(CFMachPortRef tap) {
        CGEventTapEnable(tap, true);
}

static CFRunLoopRef currentRunLoop(void) {
        return CFRunLoopGetCurrent();
}

static CGEventMask cgEventMaskBit(CGEventType type) {
        return ((CGEventMask)1) << type;
}

static void addSourceToRunLoop(CFRunLoopRef loop, CFRunLoopSourceRef source) {
        CFRunLoopAddSource(loop, source, kCFRunLoopCommonModes);
}

static void runCurrentRunLoop(void) {
        CFRunLoopRun();
}

static void stopRunLoop(CFRunLoopRef loop) {
        CFRunLoopStop(loop);
}

static int64_t cgEventGetKeycode(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
}

static uint64_t cgEventGetFlags(CGEventRef event) {
        return (uint64_t)CGEventGetFlags(event);
}

static int64_t cgEventGetUserData(CGEventRef event) {
        return CGEventGetIntegerValueField(event, kCGEventSourceUserData);
}

static CGEventRef swallowedEvent(void) {
        return NULL;
}

static Boolean isTapDisabled(CGEventType type) {
        return type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput;
}
*/
import "C"

import (
	"context"
	"errors"
	"runtime"
	"runtime/cgo"
	"sync"
	"time"
	"unsafe"
)

type quartzSource struct {
	now func() time.Time
}

func defaultSource(clock func() time.Time) Source {
	return &quartzSource{now: clock}
}

type quartzStream struct {
	handle    Handler
	now       func() time.Time
	tap       C.CFMachPortRef
	stopped   chan struct{}
	closeOnce sync.Once
}

func (s *quartzStream) close() {
	s.closeOnce.Do(func() {
		close(s.stopped)
	})
}

func (s *quartzStream) dispatch(eventType C.CGEventType, event C.CGEventRef) Verdict {
	typ := EventType(eventType)
	keycode := int64(C.cgEventGetKeycode(event))
	flags := uint64(C.cgEventGetFlags(event))
	ev := Event{
		Type:      typ,
		Key:       Decode(typ, keycode, flags),
		RawCode:   keycode,
		RawFlags:  flags,
		Synthetic: int64(C.cgEventGetUserData(event)) == SyntheticMarker,
		Timestamp: s.now().UTC(),
	}
	if ev.Synthetic {
		// Our own posted keys must reach the application untouched.
		s.handle(ev)
		return Forward
	}
	return s.handle(ev)
}

// Stream installs an active tap on KeyDown and FlagsChanged events and runs
// the current thread's run loop until ctx is cancelled.
func (s *quartzSource) Stream(ctx context.Context, handle Handler) error {
	if C.axCheckTrusted() == C.Boolean(0) {
		return ErrAccessibilityPermission
	}
	if ctx == nil {
		ctx = context.Background()
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	stream := &quartzStream{handle: handle, now: s.now, stopped: make(chan struct{})}
	h := cgo.NewHandle(stream)
	defer h.Delete()

	mask := C.cgEventMaskBit(C.kCGEventKeyDown) |
		C.cgEventMaskBit(C.kCGEventFlagsChanged)

	var tap C.CFMachPortRef
	source := C.startKeyTap(C.uintptr_t(h), mask, &tap)
	if source == 0 {
		return errors.New("failed to create CGEvent tap")
	}
	defer C.CFRelease(C.CFTypeRef(source))
	defer C.CFRelease(C.CFTypeRef(tap))
	stream.tap = tap

	loop := C.currentRunLoop()
	var stopOnce sync.Once
	stopLoop := func() {
		stopOnce.Do(func() {
			C.stopRunLoop(loop)
		})
	}
	C.addSourceToRunLoop(loop, source)

	cancelWatcher := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			stopLoop()
		case <-stream.stopped:
		}
		close(cancelWatcher)
	}()

	C.runCurrentRunLoop()
	stopLoop()
	stream.close()
	<-cancelWatcher
	return ctx.Err()
}

//export goHandleKeyEvent
func goHandleKeyEvent(_ C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, userInfo unsafe.Pointer) C.CGEventRef {
	stream, ok := cgo.Handle(uintptr(userInfo)).Value().(*quartzStream)
	if !ok {
		return event
	}

	if C.isTapDisabled(eventType) != C.Boolean(0) {
		// The system disables slow taps; turn it straight back on.
		C.enableTap(stream.tap)
		return event
	}

	switch eventType {
	case C.kCGEventKeyDown, C.kCGEventFlagsChanged:
		if stream.dispatch(eventType, event) == Consume {
			return C.swallowedEvent()
		}
	}
	return event
}
