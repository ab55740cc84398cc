package client

// Surface is whatever renders the shared video on the viewer's side. The
// proxy only pushes state into it; it never reads anything back.
type Surface interface {
	SetVideo(videoURL string)
	SetPaused(isPaused bool)
	SetTime(position int)
	SetVolume(volume int)
	Release()
}

// SurfaceProvider hands out one surface per room. Acquire is called once
// after the room snapshot arrives, Release exactly once on every exit path.
type SurfaceProvider interface {
	Acquire(roomId string) (Surface, error)
}

// Notifier receives the human-readable feed of room activity.
type Notifier interface {
	Notify(message string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}
