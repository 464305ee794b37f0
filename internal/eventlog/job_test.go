package eventlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCleanupJob_Process(t *testing.T) {
	tests := []struct {
		name      string
		retention int
		deleted   int64
		repoErr   error
		wantErr   bool
		wantCall  bool
	}{
		{name: "deletes past retention", retention: 30, deleted: 12, wantCall: true},
		{name: "repository failure surfaces", retention: 7, repoErr: errors.New("timeout"), wantErr: true, wantCall: true},
		{name: "zero retention keeps everything", retention: 0},
		{name: "negative retention keeps everything", retention: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.wantCall {
				repo.On("CleanupOldEvents", mock.Anything, tt.retention).Return(tt.deleted, tt.repoErr)
			}
			job := NewCleanupJob(NewService(repo), tt.retention)

			err := job.Process(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantCall {
				repo.AssertExpectations(t)
			} else {
				repo.AssertNotCalled(t, "CleanupOldEvents", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCleanupJob_Name(t *testing.T) {
	assert.Equal(t, CleanupJobName, NewCleanupJob(nil, 1).Name())
}
