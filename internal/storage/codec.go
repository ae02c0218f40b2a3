package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
	"github.com/annel0/isomap/internal/world/block"
)

// ErrCorruptChunk возвращается при любом несоответствии сохранённых данных чанка
var ErrCorruptChunk = world.ErrCorruptChunk

// Формат записи чанка:
//
//	magic[4] version[1] flags[1] x[4] y[4] dimX[1] dimY[1] dimZ[1]
//	body: ID-плоскость и Value-плоскость по BlocksPerChunk байт (zstd, если flagZstd)
//	xxhash64[8] от всего предыдущего
const (
	chunkMagic   = "ISOC"
	chunkVersion = 1
	headerSize   = 17
	checksumSize = 8
	flagZstd     = 1 << 0
)

// Codec сериализует чанки для постоянного хранилища
type Codec struct {
	compress  bool
	enc       *zstd.Encoder
	dec       *zstd.Decoder
	closeOnce sync.Once
}

// NewCodec создаёт кодек. Сжатые записи декодируются всегда,
// compress влияет только на запись.
func NewCodec(compress bool) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{compress: compress, enc: enc, dec: dec}, nil
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.closeOnce.Do(func() {
		c.enc.Close()
		c.dec.Close()
	})
}

// Encode сериализует содержимое чанка
func (c *Codec) Encode(chunk *world.Chunk) ([]byte, error) {
	cells := chunk.Snapshot()

	body := make([]byte, 2*world.BlocksPerChunk)
	for i, b := range cells {
		body[i] = byte(b.ID)
		body[world.BlocksPerChunk+i] = b.Value
	}

	var flags byte
	if c.compress {
		body = c.enc.EncodeAll(body, nil)
		flags |= flagZstd
	}

	out := make([]byte, headerSize, headerSize+len(body)+checksumSize)
	copy(out[0:4], chunkMagic)
	out[4] = chunkVersion
	out[5] = flags
	binary.LittleEndian.PutUint32(out[6:10], uint32(int32(chunk.Coords.X)))
	binary.LittleEndian.PutUint32(out[10:14], uint32(int32(chunk.Coords.Y)))
	out[14] = world.BlocksX
	out[15] = world.BlocksY
	out[16] = world.BlocksZ
	out = append(out, body...)
	out = binary.LittleEndian.AppendUint64(out, xxhash.Sum64(out))
	return out, nil
}

// Decode восстанавливает чанк из записи. Любая ошибка оборачивает ErrCorruptChunk.
func (c *Codec) Decode(data []byte) (*world.Chunk, error) {
	if len(data) < headerSize+checksumSize {
		return nil, fmt.Errorf("%w: payload too short (%d bytes)", ErrCorruptChunk, len(data))
	}

	payload, trailer := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	if xxhash.Sum64(payload) != binary.LittleEndian.Uint64(trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptChunk)
	}
	if string(payload[0:4]) != chunkMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptChunk)
	}
	if payload[4] != chunkVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptChunk, payload[4])
	}
	if payload[14] != world.BlocksX || payload[15] != world.BlocksY || payload[16] != world.BlocksZ {
		return nil, fmt.Errorf("%w: chunk dimensions %dx%dx%d do not match", ErrCorruptChunk,
			payload[14], payload[15], payload[16])
	}

	coords := vec.Vec2{
		X: int(int32(binary.LittleEndian.Uint32(payload[6:10]))),
		Y: int(int32(binary.LittleEndian.Uint32(payload[10:14]))),
	}

	body := payload[headerSize:]
	if payload[5]&flagZstd != 0 {
		var err error
		body, err = c.dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
		}
	}
	if len(body) != 2*world.BlocksPerChunk {
		return nil, fmt.Errorf("%w: body has %d bytes", ErrCorruptChunk, len(body))
	}

	cells := make([]block.Block, world.BlocksPerChunk)
	for i := range cells {
		cells[i] = block.Block{ID: block.ID(body[i]), Value: body[world.BlocksPerChunk+i]}
	}

	chunk := world.NewChunk(coords)
	if err := chunk.Restore(cells); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}
	return chunk, nil
}
