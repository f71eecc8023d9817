package main

import (
	"os"
	"time"

	"github.com/divelogio/divecore/internal/iostream"
)

// fileStream adapts an *os.File to iostream.Stream, standing in for a
// real serial/BLE transport the way garmin.Device stands in a mounted
// filesystem for USB-storage: Configure/Flush/Purge are meaningless for
// a plain file and no-op, Sleep really sleeps since a replayed capture
// still has to honor a backend's inter-packet delay.
type fileStream struct {
	f *os.File
}

func openFileStream(path string, write bool) (*fileStream, error) {
	flag := os.O_RDONLY
	if write {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileStream{f: f}, nil
}

func (s *fileStream) Configure(int, int, iostream.Parity, int, iostream.FlowControl) error {
	return nil
}
func (s *fileStream) SetTimeout(time.Duration) error          { return nil }
func (s *fileStream) Flush() error                             { return nil }
func (s *fileStream) Purge(iostream.PurgeDirection) error       { return nil }
func (s *fileStream) Sleep(d time.Duration)                     { time.Sleep(d) }
func (s *fileStream) Close() error                              { return s.f.Close() }
func (s *fileStream) Read(buf []byte) (int, error)              { return s.f.Read(buf) }
func (s *fileStream) Write(p []byte) (int, error)               { return s.f.Write(p) }

// filePacketStream adapts a fileStream into a fixed-size iostream.PacketStream
// for the Scubapro G2 backend, reading/writing packetSize-byte chunks of a
// captured-transcript file rather than a live BLE-GATT characteristic.
type filePacketStream struct {
	*fileStream
	packetSize int
}

func openFilePacketStream(path string, write bool, packetSize int) (*filePacketStream, error) {
	s, err := openFileStream(path, write)
	if err != nil {
		return nil, err
	}
	return &filePacketStream{fileStream: s, packetSize: packetSize}, nil
}

func (s *filePacketStream) PacketSize() int { return s.packetSize }

func (s *filePacketStream) PacketRead() ([]byte, error) {
	buf := make([]byte, s.packetSize)
	n, err := s.f.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (s *filePacketStream) PacketWrite(p []byte) error {
	_, err := s.f.Write(p)
	return err
}
