// Copyright 2026 The Sqlfuse Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fs

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sqlfuse/sqlfuse/fserrors"
)

// CollectOrphan destroys inode if both its link count and its open
// handle count have reached zero, discarding any leftover block-cache
// buffer in the same stroke. Unlink and Rmdir run their own inline
// version of this inside the transaction that drops a link, and
// Release runs its own inside the transaction that decrements inuse;
// none of them calls this function.
func (fs *FileSystem) CollectOrphan(ctx context.Context, inode int64) (bool, error) {
	var destroyed bool
	err := fs.Store.WithTxn(ctx, func(tx *sqlx.Tx) error {
		var err error
		destroyed, err = fs.Store.DeleteInodeIfOrphan(ctx, tx, inode)
		return err
	})
	if err != nil {
		return false, fserrors.New(fserrors.IO, "collect", "", err)
	}
	if destroyed {
		fs.Cache.Discard(inode)
	}
	return destroyed, nil
}
