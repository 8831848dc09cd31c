package websocket

import "testing"

func TestWriteQueuePrefersControlOverData(t *testing.T) {
	var q writeQueue
	q.pushData(writeJob{frame: []byte("data-1")})
	q.pushData(writeJob{frame: []byte("data-2")})
	q.pushControl(writeJob{frame: []byte("control-1")})

	job, ok := q.pop()
	if !ok || string(job.frame) != "control-1" {
		t.Fatalf("pop() = %q, want control-1", job.frame)
	}

	job, ok = q.pop()
	if !ok || string(job.frame) != "data-1" {
		t.Fatalf("pop() = %q, want data-1", job.frame)
	}
}

func TestWriteQueuePopEmpty(t *testing.T) {
	var q writeQueue
	if _, ok := q.pop(); ok {
		t.Fatal("pop() on empty queue should report false")
	}
}

func TestWriteQueueFailAllResolvesEveryJob(t *testing.T) {
	var q writeQueue
	d1, d2 := make(chan error, 1), make(chan error, 1)
	q.pushControl(writeJob{frame: []byte("c"), done: d1})
	q.pushData(writeJob{frame: []byte("d"), done: d2})

	q.failAll(errClientDisconnected)

	if err := <-d1; err != errClientDisconnected {
		t.Errorf("control job err = %v", err)
	}
	if err := <-d2; err != errClientDisconnected {
		t.Errorf("data job err = %v", err)
	}
	if _, ok := q.pop(); ok {
		t.Error("queue should be empty after failAll")
	}
}

func TestResolveIgnoresNilChannel(t *testing.T) {
	resolve(nil, errClientDisconnected) // must not panic
}
