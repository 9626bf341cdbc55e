package bus

import "testing"

func TestEndpoint_Local(t *testing.T) {
	tr := Local("/run/squirt")
	if got := tr.Endpoint(TopicFrame, true); got != "ipc:///run/squirt/img_path" {
		t.Errorf("bind endpoint = %q, want ipc:///run/squirt/img_path", got)
	}
	// Local endpoints are identical for both sides.
	if tr.Endpoint(TopicFrame, true) != tr.Endpoint(TopicFrame, false) {
		t.Error("local bind and connect endpoints differ")
	}
}

func TestEndpoint_LocalDefaultDir(t *testing.T) {
	tr := Local("")
	if got := tr.Endpoint(TopicShoot, false); got != "ipc:///tmp/shoot" {
		t.Errorf("endpoint = %q, want ipc:///tmp/shoot", got)
	}
}

func TestEndpoint_Networked(t *testing.T) {
	tr := Networked("brain.local", 9000)
	if got := tr.Endpoint(TopicShoot, false); got != "tcp://brain.local:9000" {
		t.Errorf("connect endpoint = %q, want tcp://brain.local:9000", got)
	}
	if got := tr.Endpoint(TopicShoot, true); got != "tcp://brain.local:9000" {
		t.Errorf("bind endpoint = %q, want tcp://brain.local:9000", got)
	}
}

func TestEndpoint_NetworkedBindAllInterfaces(t *testing.T) {
	tr := Networked("", 9000)
	if got := tr.Endpoint(TopicShoot, true); got != "tcp://*:9000" {
		t.Errorf("bind endpoint = %q, want tcp://*:9000", got)
	}
}

func TestTransportString(t *testing.T) {
	if got := Local("/tmp").String(); got != "local(/tmp)" {
		t.Errorf("String() = %q, want local(/tmp)", got)
	}
	if got := Networked("10.0.0.2", 9000).String(); got != "networked(10.0.0.2:9000)" {
		t.Errorf("String() = %q, want networked(10.0.0.2:9000)", got)
	}
}

func TestPayloadOf(t *testing.T) {
	cases := []struct {
		name   string
		parts  [][]byte
		want   string
		wantOK bool
	}{
		{"valid", [][]byte{[]byte("shoot"), []byte("payload")}, "payload", true},
		{"wrong topic", [][]byte{[]byte("other"), []byte("payload")}, "", false},
		{"single part", [][]byte{[]byte("shoot")}, "", false},
		{"three parts", [][]byte{[]byte("shoot"), []byte("a"), []byte("b")}, "", false},
		{"empty", nil, "", false},
	}
	for _, tc := range cases {
		payload, ok := payloadOf(tc.parts, "shoot")
		if ok != tc.wantOK {
			t.Errorf("%s: ok = %v, want %v", tc.name, ok, tc.wantOK)
			continue
		}
		if ok && string(payload) != tc.want {
			t.Errorf("%s: payload = %q, want %q", tc.name, payload, tc.want)
		}
	}
}
