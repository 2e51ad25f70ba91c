package sqlinline

const QSelectDailyRestoreCount = `--sql 682e6484-01d3-4cd7-9740-62c715f88196
select coalesce((
    select restore_count
    from restore_usage_daily
    where subject = $1::text and day = $2::date
), 0);
`

// QReserveDailyRestore takes one slot only while restore_count < $3; a full
// day returns no row. The conditional upsert is atomic per (subject, day).
const QReserveDailyRestore = `--sql 329ed819-8778-4248-b502-312cc4843e41
insert into restore_usage_daily (subject, day, restore_count, updated_at)
values ($1::text, $2::date, 1, now())
on conflict (subject, day) do update set
    restore_count = restore_usage_daily.restore_count + 1,
    updated_at = now()
where restore_usage_daily.restore_count < $3::int
returning restore_count;
`

const QReleaseDailyRestore = `--sql d41f6c2e-7b58-4a90-9e13-5c8a2b7f0d64
update restore_usage_daily
set restore_count = greatest(restore_count - 1, 0),
    updated_at = now()
where subject = $1::text and day = $2::date;
`

const QResetDailyRestoreCount = `--sql 0b7e3f5a-94c2-4d1e-8a63-2f5c9d7e1b40
delete from restore_usage_daily
where subject = $1::text and day = $2::date;
`
