//go:build darwin

package capture

/*
#cgo darwin LDFLAGS: -framework CoreGraphics -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>
#include <stdint.h>

static int postKeyStroke(CGKeyCode code, uint64_t flags, int64_t marker) {
        CGEventSourceRef src = CGEventSourceCreate(kCGEventSourceStateHIDSystemState);
        if (src == NULL) {
                return -1;
        }
        CGEventRef down = CGEventCreateKeyboardEvent(src, code, true);
        CGEventRef up = CGEventCreateKeyboardEvent(src, code, false);
        if (down == NULL || up == NULL) {
                if (down != NULL) {
                        CFRelease(down);
                }
                if (up != NULL) {
                        CFRelease(up);
                }
                CFRelease(src);
                return -2;
        }
        CGEventSetFlags(down, (CGEventFlags)flags);
        CGEventSetFlags(up, (CGEventFlags)flags);
        CGEventSetIntegerValueField(down, kCGEventSourceUserData, marker);
        CGEventSetIntegerValueField(up, kCGEventSourceUserData, marker);
        CGEventPost(kCGHIDEventTap, down);
        CGEventPost(kCGHIDEventTap, up);
        CFRelease(down);
        CFRelease(up);
        CFRelease(src);
        return 0;
}
*/
import "C"

import (
	"fmt"

	"github.com/offlinefirst/keymapd/pkg/keys"
)

type quartzPoster struct{}

func defaultPoster() Poster {
	return quartzPoster{}
}

// Post synthesises a key-down/key-up pair tagged with SyntheticMarker.
func (quartzPoster) Post(key keys.KeySpec) error {
	if key.IsModifierOnly() {
		return fmt.Errorf("post %s: chord has no key", key)
	}
	rc := C.postKeyStroke(C.CGKeyCode(key.Code), C.uint64_t(FlagsFromModifiers(key.Mods)), C.int64_t(SyntheticMarker))
	if rc != 0 {
		return fmt.Errorf("post %s: quartz error %d", key, int(rc))
	}
	return nil
}
