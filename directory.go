package ecsfs

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmackle/ecsfs/errors"
)

// validateFilename checks that name fits the on-disk field: at least one
// byte, short enough to leave room for the terminating NUL, and no embedded
// NUL (the field is a C string on disk).
func validateFilename(name string) error {
	if len(name) == 0 {
		return errors.InvalidName.WithMessage("filename is empty")
	}
	if len(name) > FilenameLen-1 {
		return errors.InvalidName.WithMessage(fmt.Sprintf(
			"%q is %d bytes, limit is %d plus a terminating NUL",
			name, len(name), FilenameLen-1))
	}
	if strings.IndexByte(name, 0) >= 0 {
		return errors.InvalidName.WithMessage("filename contains a NUL byte")
	}
	return nil
}

// findFile returns the root directory index holding name.
func (fs *FileSystem) findFile(name string) (int, error) {
	for i := range fs.root {
		if !fs.root[i].isFree() && fs.root[i].name() == name {
			return i, nil
		}
	}
	return 0, errors.NotFound.WithMessage(name)
}

// Create adds an empty file called name to the root directory and persists
// the change.
func (fs *FileSystem) Create(name string) error {
	if err := fs.mounted(); err != nil {
		return err
	}
	if err := validateFilename(name); err != nil {
		return err
	}
	if _, err := fs.findFile(name); err == nil {
		return errors.Exists.WithMessage(name)
	}

	for i := range fs.root {
		if !fs.root[i].isFree() {
			continue
		}

		ent := &fs.root[i]
		*ent = rawDirEntry{FirstDataBlock: FatEOC}
		copy(ent.Filename[:], name)
		return fs.flushRootDir()
	}

	return errors.DirFull
}

// Delete removes name from the root directory, releasing its data blocks.
// A file with open descriptors cannot be deleted.
func (fs *FileSystem) Delete(name string) error {
	if err := fs.mounted(); err != nil {
		return err
	}
	if err := validateFilename(name); err != nil {
		return err
	}

	index, err := fs.findFile(name)
	if err != nil {
		return err
	}

	for i := range fs.handles {
		if fs.handles[i].open && fs.handles[i].dirIndex == index {
			return errors.FileBusy.WithMessage(name)
		}
	}

	ent := &fs.root[index]
	if ent.FirstDataBlock != FatEOC {
		if err := fs.chainFree(ent.FirstDataBlock); err != nil {
			return err
		}
	}
	*ent = rawDirEntry{}

	if err := fs.flushFAT(); err != nil {
		return err
	}
	return fs.flushRootDir()
}

// List writes one line per file in the root directory to w, in slot order.
func (fs *FileSystem) List(w io.Writer) error {
	if err := fs.mounted(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "FS Ls:"); err != nil {
		return errors.DiskError.WrapError(err)
	}
	for i := range fs.root {
		ent := &fs.root[i]
		if ent.isFree() {
			continue
		}
		_, err := fmt.Fprintf(w, "file: %s, size: %d, data_blk: %d\n",
			ent.name(), ent.FileSize, ent.FirstDataBlock)
		if err != nil {
			return errors.DiskError.WrapError(err)
		}
	}
	return nil
}
